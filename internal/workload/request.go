// Package workload generates page request streams and replays them against
// buffer managers.
package workload

import (
	"math"
	"math/rand"
	"os"

	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
	"github.com/pkg/errors"
)

// Request is one page access.
type Request struct {
	PageID util.PageID
	Write  bool
}

// zipf skew parameters; s must stay above 1 for rand.NewZipf
const (
	zipfS = 1.2
	zipfV = 1.0
)

// Uniform returns n requests with page ids drawn uniformly from [0, maxPageID].
func Uniform(n int, maxPageID uint64, writeRatio float64, seed int64) []Request {
	rng := rand.New(rand.NewSource(seed))
	reqs := make([]Request, n)
	for i := range reqs {
		reqs[i] = Request{
			PageID: util.PageID(uniformPage(rng, maxPageID)),
			Write:  rng.Float64() < writeRatio,
		}
	}
	return reqs
}

// uniformPage draws from [0, maxPageID] for any maxPageID, including ranges
// wider than Int63n accepts.
func uniformPage(rng *rand.Rand, maxPageID uint64) uint64 {
	switch {
	case maxPageID < math.MaxInt64:
		return uint64(rng.Int63n(int64(maxPageID) + 1))
	case maxPageID == math.MaxUint64:
		return rng.Uint64()
	}
	for {
		// at least half of the draws land in range
		if v := rng.Uint64(); v <= maxPageID {
			return v
		}
	}
}

// Zipf returns n requests whose page ids follow a Zipf distribution over
// [0, maxPageID], low ids being the hottest.
func Zipf(n int, maxPageID uint64, writeRatio float64, seed int64) []Request {
	rng := rand.New(rand.NewSource(seed))
	z := rand.NewZipf(rng, zipfS, zipfV, maxPageID)
	reqs := make([]Request, n)
	for i := range reqs {
		reqs[i] = Request{
			PageID: util.PageID(z.Uint64()),
			Write:  rng.Float64() < writeRatio,
		}
	}
	return reqs
}

// Generate builds the request stream described by opts: the trace file when
// one is set, otherwise a synthetic stream.
func Generate(opts util.Options) ([]Request, error) {
	if opts.Trace != "" {
		f, err := os.Open(opts.Trace)
		if err != nil {
			return nil, errors.Wrap(err, "open trace")
		}
		defer f.Close()
		return ParseTrace(f)
	}

	switch opts.Distribution {
	case util.DistUniform:
		return Uniform(opts.Requests, opts.MaxPageID, opts.WriteRatio, opts.Seed), nil
	case util.DistZipf:
		return Zipf(opts.Requests, opts.MaxPageID, opts.WriteRatio, opts.Seed), nil
	}
	return nil, util.InvalidConfiguration("unknown distribution %q", opts.Distribution)
}

// Stats summarizes a request stream.
type Stats struct {
	Requests    int
	Writes      int
	UniquePages int
}

func Summarize(reqs []Request) Stats {
	seen := make(map[util.PageID]struct{})
	s := Stats{Requests: len(reqs)}
	for _, r := range reqs {
		if r.Write {
			s.Writes++
		}
		seen[r.PageID] = struct{}{}
	}
	s.UniquePages = len(seen)
	return s
}
