package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/shop-backend/internal/metrics"
)

const sendTimeout = 10 * time.Second

// MagicLinkNotifier delivers sign-in links in the background. Notify never
// blocks on the mail provider and never reports delivery errors to the caller.
type MagicLinkNotifier struct {
	sender  Sender
	baseURL string
	ttl     time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewMagicLinkNotifier(sender Sender, frontendBaseURL string, ttl time.Duration, logger *slog.Logger) *MagicLinkNotifier {
	return &MagicLinkNotifier{
		sender:  sender,
		baseURL: strings.TrimRight(frontendBaseURL, "/"),
		ttl:     ttl,
		logger:  logger.With("component", "magic_link_notifier"),
	}
}

// Link builds the URL the frontend uses to finish sign-in.
func (n *MagicLinkNotifier) Link(rawToken string) string {
	return n.baseURL + "/auth/finish?token=" + url.QueryEscape(rawToken)
}

func (n *MagicLinkNotifier) Notify(ctx context.Context, to, rawToken string) {
	msg := n.message(to, n.Link(rawToken))

	// Detached from the request so delivery survives the response being sent.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		if err := n.sender.Send(sendCtx, msg); err != nil {
			metrics.MagicLinkDeliveryFailuresTotal.Inc()
			n.logger.ErrorContext(sendCtx, "deliver magic link", "error", err)
		}
	}()
}

func (n *MagicLinkNotifier) message(to, link string) Message {
	minutes := int(n.ttl.Minutes())
	escaped := html.EscapeString(link)
	return Message{
		To:      to,
		Subject: "Your sign-in link",
		HTML: fmt.Sprintf(
			`<p>Click the link below to sign in (expires in %d minutes):</p><p><a href="%s">%s</a></p>`,
			minutes, escaped, escaped,
		),
		Text: fmt.Sprintf("Sign in within %d minutes:\n%s\n", minutes, link),
		Tag:  "magic_link",
	}
}

// Wait blocks until in-flight deliveries finish. Called on shutdown.
func (n *MagicLinkNotifier) Wait() {
	n.wg.Wait()
}
