package presenter

// Config controls how a presenter is retained and which view interceptors the
// delegate installs for it.
type Config struct {
	// RetainPresenter keeps the presenter alive across container recreation.
	RetainPresenter bool
	// UseSaviorToRetain registers the presenter in the savior so it can be
	// recovered when the in-process retain channel is unavailable.
	UseSaviorToRetain bool
	// CallOnMainThread wraps the view so void calls run on the UI goroutine.
	CallOnMainThread bool
	// DistinctUntilChanged wraps the view so repeated identical calls are dropped.
	DistinctUntilChanged bool
}

// DefaultConfig enables everything.
func DefaultConfig() Config {
	return Config{
		RetainPresenter:      true,
		UseSaviorToRetain:    true,
		CallOnMainThread:     true,
		DistinctUntilChanged: true,
	}
}
