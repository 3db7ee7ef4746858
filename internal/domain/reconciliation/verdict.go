package reconciliation

import (
	"github.com/aidledger-audit/internal/domain/ledger"
)

// Status classifies how the ledger and database histories of a subject relate
type Status string

const (
	StatusMatch               Status = "MATCH"
	StatusMismatch            Status = "MISMATCH"
	StatusPartial             Status = "PARTIAL"
	StatusNoDBRecords         Status = "NO_DB_RECORDS"
	StatusNoBlockchainRecords Status = "NO_BLOCKCHAIN_RECORDS"
)

// Verdict is the outcome of comparing one subject's two histories
type Verdict struct {
	LedgerCount   int               `json:"ledger_count"`
	DBCount       int               `json:"db_count"`
	Status        Status            `json:"status"`
	LedgerHistory []ledger.LogEntry `json:"ledger_history"`
}

// Classify compares the ledger log with the database status sequence.
// dbStatuses must be in audit order; dbRecordExists reports whether the
// subject itself is known to the database. Checks run in a fixed order and
// the first that applies decides the status.
func Classify(ledgerLog []ledger.LogEntry, dbRecordExists bool, dbStatuses []string) Verdict {
	if ledgerLog == nil {
		ledgerLog = []ledger.LogEntry{}
	}
	v := Verdict{
		LedgerCount:   len(ledgerLog),
		DBCount:       len(dbStatuses),
		LedgerHistory: ledgerLog,
	}

	switch {
	case len(ledgerLog) == 0 && dbRecordExists:
		v.Status = StatusNoBlockchainRecords
	case !dbRecordExists:
		v.DBCount = 0
		v.Status = StatusNoDBRecords
	case len(ledgerLog) != len(dbStatuses):
		v.Status = StatusPartial
	case !sameSequence(ledgerLog, dbStatuses):
		v.Status = StatusMismatch
	default:
		v.Status = StatusMatch
	}
	return v
}

func sameSequence(ledgerLog []ledger.LogEntry, dbStatuses []string) bool {
	for i := range ledgerLog {
		if ledgerLog[i].Status != dbStatuses[i] {
			return false
		}
	}
	return true
}
