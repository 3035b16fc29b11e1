package rzip

// aggregateProgress adapts a per-entry ProgressFunc into one reporting
// bytes-produced against the running total across every entry a single
// PackageWithCallback call is compressing, as an explicit struct rather
// than a closure chain aliasing mutable state.
type aggregateProgress struct {
	total int64
	base  int64
	user  ProgressFunc
}

func (p *aggregateProgress) forEntry() ProgressFunc {
	if p.user == nil {
		return nil
	}
	return func(_, entrySum int64, _ string) {
		sum := p.base + entrySum
		p.user(p.total, sum, formatPercent(sum, p.total))
	}
}

func (p *aggregateProgress) advance(n int64) {
	p.base += n
}
