// Package export renders seen records and listing candidates as CSV
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"contractscout/internal/core/contract"
	perr "contractscout/internal/platform/errors"
)

// RecordHeader is the column order of WriteRecords
var RecordHeader = []string{"site", "address", "name", "url", "compiler", "matched", "match_url", "notified_at", "recorded_at"}

// CandidateHeader is the column order of WriteCandidates
var CandidateHeader = []string{"site", "address", "name", "url", "compiler"}

// WriteRecords writes recs as CSV with a header row
func WriteRecords(w io.Writer, recs []contract.SeenRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RecordHeader); err != nil {
		return perr.Wrap(err, perr.ErrorCodeStorage, "write csv header")
	}
	for _, r := range recs {
		notified := ""
		if r.NotifiedAt != nil {
			notified = r.NotifiedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			r.Site, r.Address, r.Name, r.URL, r.Compiler,
			strconv.FormatBool(r.Matched), r.MatchURL, notified,
			r.RecordedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return perr.Wrap(err, perr.ErrorCodeStorage, "write csv row")
		}
	}
	cw.Flush()
	return perr.WrapIf(cw.Error(), perr.ErrorCodeStorage, "flush csv")
}

// WriteCandidates writes listing candidates as CSV with a header row
func WriteCandidates(w io.Writer, cs []contract.Candidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CandidateHeader); err != nil {
		return perr.Wrap(err, perr.ErrorCodeStorage, "write csv header")
	}
	for _, c := range cs {
		if err := cw.Write([]string{c.Site, c.Address, c.Name, c.URL, c.Compiler}); err != nil {
			return perr.Wrap(err, perr.ErrorCodeStorage, "write csv row")
		}
	}
	cw.Flush()
	return perr.WrapIf(cw.Error(), perr.ErrorCodeStorage, "flush csv")
}
