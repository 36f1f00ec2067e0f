package stage

// Health reports whether a stage can run. Model is the model the stage would
// call; stages that never reach the provider leave it empty.
type Health struct {
	Name   string
	Ready  bool
	Model  string
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// ModelReady reports a stage whose model answered the readiness probe.
func ModelReady(name, model string) Health {
	return Health{Name: name, Ready: true, Model: model}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}

// Summary renders h for status output.
func (h Health) Summary() string {
	switch {
	case !h.Ready && h.Detail != "":
		return h.Detail
	case !h.Ready:
		return "not ready"
	case h.Model != "":
		return "ready (" + h.Model + ")"
	default:
		return "ready"
	}
}
