package request

// OptionKey identifies an option type. Each option type returns one
// constant key, so a request holds at most one option per type.
type OptionKey struct {
	Key string
}

// Option is a per-request setting read by the adapter or a middleware.
type Option interface {
	GetKey() OptionKey
}

// Configuration bundles the caller-supplied parts of a generated request
// builder call.
type Configuration[T any] struct {
	Headers         *Headers
	Options         []Option
	QueryParameters *T
}

// DefaultQueryParameters is used by request builders without query parameters.
type DefaultQueryParameters struct{}

// ConfigureInformation applies config to info.
func ConfigureInformation[T any](info *Information, config *Configuration[T]) error {
	if info == nil || config == nil {
		return nil
	}
	if config.QueryParameters != nil {
		if err := info.AddQueryParameters(*config.QueryParameters); err != nil {
			return err
		}
	}
	info.Headers.AddAll(config.Headers)
	info.AddRequestOptions(config.Options...)
	return nil
}
