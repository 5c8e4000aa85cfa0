package pool

// Prefill populates pool with up to count idle instances via repeated
// AddObject calls, stopping early (without error) once the pool reaches
// MaxTotal. Callers use this after construction instead of relying solely on
// MinIdle/Start to warm the pool.
func Prefill[T any](p *ObjectPool[T], count int) error {
	for i := 0; i < count; i++ {
		if err := p.AddObject(); err != nil {
			if err == ErrExhausted {
				return nil
			}
			return err
		}
	}
	return nil
}
