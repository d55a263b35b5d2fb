package blockproc

import (
	"github.com/coreledger/coreledger-node/ledger"
	"github.com/ethereum/go-ethereum/metrics"
)

func metricsCounterFor(result ledger.ProcessResult) metrics.Counter {
	return metrics.GetOrRegisterCounter("blockproc/process/"+result.String(), nil)
}
