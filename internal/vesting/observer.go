package vesting

// Observer receives lifecycle and read-model events, e.g. for metrics.
// Implementations must not block.
type Observer interface {
	TransactionTransitioned(h Handle)
	OwnerFetched(err error)
	VestedChecked(err error)
}

type nopObserver struct{}

func (nopObserver) TransactionTransitioned(Handle) {}
func (nopObserver) OwnerFetched(error)             {}
func (nopObserver) VestedChecked(error)            {}
