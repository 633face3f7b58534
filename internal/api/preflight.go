package api

// PreflightCheck is the outcome of one host readiness check.
type PreflightCheck struct {
	Name   string `json:"name" yaml:"name"`
	Target string `json:"target" yaml:"target"`
	OK     bool   `json:"ok" yaml:"ok"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type PreflightReport struct {
	Checks []PreflightCheck `json:"checks" yaml:"checks"`
	Ready  bool             `json:"ready" yaml:"ready"`
}
