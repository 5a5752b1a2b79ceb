package submitsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/bulkedit"
	"github.com/trezcool/admissions/core/page"
)

type restSubmitter struct {
	client *rest.Client
	url    string
	token  string
	cookie string
	names  bulkedit.FormNames
	logger core.Logger
}

var _ bulkedit.Submitter = (*restSubmitter)(nil)

// NewRESTSubmitter posts change-sets to the bulk update endpoint of `pg` on the portal.
func NewRESTSubmitter(conf core.PortalConfig, pg page.Page, logger core.Logger) bulkedit.Submitter {
	// the jar keeps the session set by the bulk update, which carries the flash alert to the listing
	jar, _ := cookiejar.New(nil)
	return &restSubmitter{
		client: &rest.Client{HTTPClient: &http.Client{Timeout: conf.Timeout, Jar: jar}},
		url:    strings.TrimRight(conf.BaseURL, "/") + pg.Path,
		token:  conf.Token,
		cookie: conf.Cookie,
		names:  pg.Form,
		logger: logger,
	}
}

// Submit posts the change-set. The portal answers with a redirect to the listing page,
// whose flash alert tells how the bulk update went.
func (svc restSubmitter) Submit(ctx context.Context, form url.Values) (bulkedit.Outcome, error) {
	records, err := bulkedit.Decode(form, svc.names)
	if err != nil {
		return bulkedit.Outcome{}, errors.Wrap(err, "encoding change-set")
	}
	outcome := bulkedit.Outcome{Total: len(records)}

	req := rest.Request{
		Method:  http.MethodPost,
		BaseURL: svc.url,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
			"Accept":       "text/html",
		},
		Body: []byte(form.Encode()),
	}
	if svc.token != "" {
		req.Headers["Authorization"] = "Bearer " + svc.token
	}
	if svc.cookie != "" {
		req.Headers["Cookie"] = svc.cookie
	}

	res, err := svc.send(ctx, req)
	if err != nil {
		return outcome, errors.Wrap(err, "posting change-set")
	}
	if res.StatusCode >= http.StatusBadRequest {
		svc.logger.Error(fmt.Sprintf("posting change-set - status: %d - Body: %s", res.StatusCode, res.Body))
		return outcome, &bulkedit.SubmissionError{
			Outcome: outcome,
			Err:     errors.Errorf("portal responded %d", res.StatusCode),
		}
	}

	alert, ok, err := findAlert(res.Body)
	if err != nil {
		return outcome, errors.Wrap(err, "reading portal response")
	}
	if !ok {
		return outcome, &bulkedit.SubmissionError{Outcome: outcome, Err: errors.New("the portal did not confirm the save")}
	}
	return alert.outcome(outcome)
}

func (svc restSubmitter) send(ctx context.Context, req rest.Request) (*rest.Response, error) {
	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return nil, err
	}
	httpRes, err := svc.client.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return rest.BuildResponse(httpRes)
}
