package dispatch

import (
	"context"

	"livepush-backend/internal/store"
)

// DevicePaginator walks the devices subscribed to a channel in
// fixed-size pages ordered by subscription id. A fresh paginator is
// created for every dispatch run; the sequence ends once a page comes
// back strictly shorter than the page size.
type DevicePaginator struct {
	store    store.Store
	channel  string
	pageSize int
	offset   int
	done     bool
}

// NewDevicePaginator creates a paginator over a channel's devices.
func NewDevicePaginator(s store.Store, channel string, pageSize int) *DevicePaginator {
	return &DevicePaginator{
		store:    s,
		channel:  channel,
		pageSize: pageSize,
	}
}

// Next returns the next page of devices and whether more pages remain.
// After the terminal page it returns an empty page and false.
func (p *DevicePaginator) Next(ctx context.Context) ([]store.SubscribedDevice, bool, error) {
	if p.done {
		return nil, false, nil
	}

	page, err := p.store.ListSubscribedDevices(ctx, p.channel, p.offset, p.pageSize)
	if err != nil {
		return nil, false, err
	}

	p.offset += len(page)
	if len(page) < p.pageSize {
		p.done = true
	}
	return page, !p.done, nil
}
