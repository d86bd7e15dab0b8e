package stage

// Health reports whether a stage's external dependencies are usable:
// the Suno API key is present, ffmpeg resolves, the uploader command
// exists. Detail carries the operator-facing reason when Ready is false.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports a stage ready to run.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports a stage that cannot run, with the reason.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
