package device

import (
	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
)

// CostModel assigns a cost to every page read and page write.
// Flash media typically has WriteCost well above ReadCost.
type CostModel struct {
	ReadCost  float64
	WriteCost float64
}

// Ratio is WriteCost/ReadCost, or 0 when reads are free.
func (m CostModel) Ratio() float64 {
	if m.ReadCost == 0 {
		return 0
	}
	return m.WriteCost / m.ReadCost
}

// Cost wraps a Device and accumulates the cost of successful operations
// under a CostModel.
type Cost struct {
	counters
	dev   Device
	model CostModel
	total float64
}

func NewCost(dev Device, model CostModel) (*Cost, error) {
	if model.ReadCost < 0 || model.WriteCost < 0 {
		return nil, util.InvalidConfiguration("device costs must not be negative")
	}
	return &Cost{dev: dev, model: model}, nil
}

func (d *Cost) PageSize() int { return d.dev.PageSize() }

func (d *Cost) Read(pageID util.PageID, buf []byte) error {
	if err := d.dev.Read(pageID, buf); err != nil {
		return err
	}
	d.reads++
	d.total += d.model.ReadCost
	return nil
}

func (d *Cost) Write(pageID util.PageID, buf []byte) error {
	if err := d.dev.Write(pageID, buf); err != nil {
		return err
	}
	d.writes++
	d.total += d.model.WriteCost
	return nil
}

// TotalCost is the accumulated cost of every successful read and write.
func (d *Cost) TotalCost() float64 { return d.total }

func (d *Cost) Model() CostModel { return d.model }

// Unwrap returns the decorated device.
func (d *Cost) Unwrap() Device { return d.dev }
