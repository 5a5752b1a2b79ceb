package submitsvc

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/bulkedit"
)

type consoleSubmitter struct {
	mu    sync.Mutex
	out   io.Writer
	names bulkedit.FormNames
}

var _ bulkedit.Submitter = (*consoleSubmitter)(nil)

// NewConsoleSubmitter prints change-sets to `out` instead of posting them (dry run).
func NewConsoleSubmitter(out io.Writer, names bulkedit.FormNames) bulkedit.Submitter {
	return &consoleSubmitter{out: out, names: names}
}

func (svc *consoleSubmitter) Submit(_ context.Context, form url.Values) (bulkedit.Outcome, error) {
	records, err := bulkedit.Decode(form, svc.names)
	if err != nil {
		return bulkedit.Outcome{}, errors.Wrap(err, "encoding change-set")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	fmt.Fprintf(svc.out, "---------- %d change(s) ----------\n", len(records))
	for _, rec := range records {
		fmt.Fprintf(svc.out, "%s=%s  %s -> %q\n", svc.names.EntityKey, rec.EntityID, rec.Field, rec.Value)
	}
	fmt.Fprintln(svc.out, "----------------------------------")
	return bulkedit.Outcome{Total: len(records), Saved: len(records)}, nil
}
