package validate

import (
	mesh3mf "github.com/solidforge/mesh3mf"
)

// Validate checks the model at the given level and returns the
// accumulated report. It is a pure function of (model, level).
func Validate(m *mesh3mf.Model, level Level) *Report {
	r := new(Report)
	validateSchema(m, r)
	if level >= Standard {
		validateSemantic(m, r)
		validateDisplacement(m, r)
	}
	if level >= Strict {
		validateStrict(m, r)
	}
	if level >= Paranoid {
		validateGeometry(m, r)
	}
	return r
}
