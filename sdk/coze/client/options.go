package client

// RequestOptions carries per-call headers and query parameters.
// Values are treated as immutable; Merge and the With helpers return copies.
type RequestOptions struct {
	Headers map[string]string
	Params  map[string]string
}

// Merge returns base overlaid with override. Keys present in override win,
// keys present in only one side are kept.
func (o RequestOptions) Merge(override RequestOptions) RequestOptions {
	return RequestOptions{
		Headers: mergeMaps(o.Headers, override.Headers),
		Params:  mergeMaps(o.Params, override.Params),
	}
}

// WithHeader returns a copy of o with header key set to value.
func (o RequestOptions) WithHeader(key, value string) RequestOptions {
	return o.Merge(RequestOptions{Headers: map[string]string{key: value}})
}

// WithParam returns a copy of o with query parameter key set to value.
func (o RequestOptions) WithParam(key, value string) RequestOptions {
	return o.Merge(RequestOptions{Params: map[string]string{key: value}})
}

func mergeMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
