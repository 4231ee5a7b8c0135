package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/accounts-api/internal/domain"
)

// JoinedAccountLister finds accounts by the calendar date they joined.
type JoinedAccountLister interface {
	ListJoinedOn(ctx context.Context, day time.Time, loc *time.Location) ([]*domain.Account, error)
}

// CongratulationsEmailData is the template data for congratulations.html.
type CongratulationsEmailData struct {
	Days int
}

// CongratulationsConfig configures the send-congrats handler.
type CongratulationsConfig struct {
	// AfterDays is how many days after joining an account is congratulated.
	AfterDays int
	// Location is the zone in which "today" and date_joined are read.
	Location *time.Location
	// Now is the time source; nil means time.Now.
	Now func() time.Time
}

// NewCongratulationsHandler returns the send-congrats handler. It sends a
// single email addressed to every account that joined exactly AfterDays
// calendar days ago. Errors are returned as-is, so the task is not retried.
func NewCongratulationsHandler(
	accounts JoinedAccountLister,
	mailer Mailer,
	cfg CongratulationsConfig,
	log *slog.Logger,
) Handler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log = log.With(slog.String("task_name", TaskSendCongrats))

	return func(ctx context.Context, _ *RetryContext) error {
		today := cfg.Now().In(cfg.Location)
		day := today.AddDate(0, 0, -cfg.AfterDays)

		joined, err := accounts.ListJoinedOn(ctx, day, cfg.Location)
		if err != nil {
			return fmt.Errorf("failed to list accounts joined on %s: %w", day.Format(time.DateOnly), err)
		}

		if len(joined) == 0 {
			log.Info("no accounts to congratulate", slog.String("joined_on", day.Format(time.DateOnly)))
			return nil
		}

		to := make([]string, 0, len(joined))
		for _, a := range joined {
			to = append(to, a.Email)
		}

		data := CongratulationsEmailData{Days: cfg.AfterDays}
		if err := mailer.SendEmail(ctx, TemplateCongratulations, data, to, TitleCongratulations); err != nil {
			return fmt.Errorf("failed to send congratulations: %w", err)
		}

		log.Info("congratulations sent",
			slog.String("joined_on", day.Format(time.DateOnly)),
			slog.Int("recipients", len(to)))
		return nil
	}
}
