package driven

import (
	port "github.com/alorle/iptv-livecheck/internal/port/driven"
)

// Compile-time checks that adapters implement their ports
var (
	_ port.CatalogRepository = (*CatalogFileRepository)(nil)
	_ port.ProbeRepository   = (*ProbeBoltDBRepository)(nil)
	_ port.StreamProber      = (*HTTPStreamProber)(nil)
	_ port.DecoderProbe      = (*FFProbeDecoder)(nil)
	_ port.CandidateSource   = (*ListCandidateSource)(nil)
	_ port.Ledger            = (*CSVLedger)(nil)
	_ port.Ledger            = (*WhitelistLedger)(nil)
	_ port.Ledger            = (*SQLiteLedger)(nil)
	_ port.Ledger            = MultiLedger(nil)
)
