package license

// SetKeyGenerator replaces the key source.
func SetKeyGenerator(s *Service, gen func() (string, error)) {
	s.newKey = gen
}
