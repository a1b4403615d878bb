package facevault

// Close stops the background refresh loop and waits for in-flight warmup to
// be observed as abandoned. The durable store needs no teardown; every
// mutation commits or rolls back before returning.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	s.cache.StopAutoRefresh()
	return nil
}
