package task

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/phrazzld/accounts-api/internal/domain"
	"github.com/phrazzld/accounts-api/internal/platform/logger"
)

// Payload keys of the activate-account task.
const (
	PayloadAccountID = "id"
	PayloadUsername  = "username"
	PayloadEmail     = "email"
	PayloadCode      = "code"
)

// Mail templates and subjects used by the account tasks.
const (
	TemplateActivation      = "activation.html"
	TemplateCongratulations = "congratulations.html"

	TitleActivation      = "Confirm your account"
	TitleCongratulations = "Congratulations!"
)

// Mailer sends rendered template emails. *mail.Mailer implements it.
type Mailer interface {
	SendEmail(ctx context.Context, template string, data any, to []string, title string) error
}

// ActivationPayload builds the activate-account payload for an account.
func ActivationPayload(account *domain.Account) map[string]string {
	return map[string]string{
		PayloadAccountID: account.ID.String(),
		PayloadUsername:  account.Username,
		PayloadEmail:     account.Email,
		PayloadCode:      account.ActivationCode.String(),
	}
}

// ActivationLink returns the URL a user follows to activate an account.
func ActivationLink(baseURL, accountID, code string) (string, error) {
	link, err := url.JoinPath(baseURL, "api", "v1", "accounts", accountID, "activate")
	if err != nil {
		return "", fmt.Errorf("invalid activation base url %q: %w", baseURL, err)
	}
	return link + "?code=" + url.QueryEscape(code), nil
}

// ActivationEmailData is the template data for activation.html.
type ActivationEmailData struct {
	Username string
	Link     string
}

// NewActivationEmailHandler returns the activate-account handler. Mail
// errors are retried with backoff; a malformed payload fails permanently.
func NewActivationEmailHandler(mailer Mailer, baseURL string, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("task_name", TaskActivateAccount))

	return func(ctx context.Context, rc *RetryContext) error {
		l := logger.FromContextOrDefault(ctx, log)

		id, email, code := rc.Get(PayloadAccountID), rc.Get(PayloadEmail), rc.Get(PayloadCode)
		if id == "" || email == "" || code == "" {
			return fmt.Errorf("activate-account payload is missing id, email or code")
		}

		link, err := ActivationLink(baseURL, id, code)
		if err != nil {
			return err
		}

		data := ActivationEmailData{Username: rc.Get(PayloadUsername), Link: link}
		if err := mailer.SendEmail(ctx, TemplateActivation, data, []string{email}, TitleActivation); err != nil {
			l.Warn("activation email failed",
				slog.String("account_id", id),
				slog.Int("attempt", rc.Attempt()),
				slog.String("error", err.Error()))
			return rc.Retry(err)
		}

		l.Info("activation email sent", slog.String("account_id", id))
		return nil
	}
}
