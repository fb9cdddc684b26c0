package extractor

type Format struct {
	Reader     FormatReader
	Extensions []string
	MimeTypes  []string
}

func NewRegistryWith(formats ...Format) *Registry {
	registry := NewRegistry()
	for _, f := range formats {
		registry.Register(f.Reader, f.Extensions, f.MimeTypes)
	}
	return registry
}
