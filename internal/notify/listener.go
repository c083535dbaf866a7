package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/coinarena/arenad/internal/domain"
)

// Listener consumes engine records from the signal bus and forwards the
// interesting ones to the notifier. It runs until its context is cancelled.
type Listener struct {
	bus      domain.SignalBus
	notifier *Notifier
	logger   *slog.Logger
}

// NewListener creates a Listener bridging the signal bus to the notifier.
func NewListener(bus domain.SignalBus, notifier *Notifier, logger *slog.Logger) *Listener {
	return &Listener{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notify_listener")),
	}
}

// record mirrors the envelope the engine publishes on the signal bus.
type record struct {
	Kind   string         `json:"kind"`
	Detail map[string]any `json:"detail"`
}

// Run subscribes to the battle and claim channels and dispatches
// notifications for each record received.
func (l *Listener) Run(ctx context.Context) error {
	channels := []string{domain.ChannelBattles, domain.ChannelClaims}
	merged := make(chan []byte, 64)

	for _, ch := range channels {
		msgCh, err := l.bus.Subscribe(ctx, ch)
		if err != nil {
			return fmt.Errorf("notify: subscribe %s: %w", ch, err)
		}
		go func(in <-chan []byte) {
			for data := range in {
				select {
				case merged <- data:
				case <-ctx.Done():
					return
				}
			}
		}(msgCh)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-merged:
			l.handle(ctx, data)
		}
	}
}

func (l *Listener) handle(ctx context.Context, data []byte) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		l.logger.WarnContext(ctx, "undecodable record", slog.String("error", err.Error()))
		return
	}

	title, message, ok := render(rec)
	if !ok {
		return
	}

	if err := l.notifier.Notify(ctx, rec.Kind, title, message); err != nil {
		l.logger.WarnContext(ctx, "notification failed",
			slog.String("kind", rec.Kind),
			slog.String("error", err.Error()),
		)
	}
}

// render formats a record into a notification. Records that operators do not
// need to see return ok=false.
func render(rec record) (title, message string, ok bool) {
	switch rec.Kind {
	case domain.EventBattleCreated:
		return "Battle created",
			fmt.Sprintf("Battle %v opened: %v vs %v",
				rec.Detail["battle_id"], rec.Detail["asset_a"], rec.Detail["asset_b"]),
			true
	case domain.EventBattleFinalized:
		return "Battle finalized",
			fmt.Sprintf("Battle %v settled, winner side %v",
				rec.Detail["battle_id"], rec.Detail["winner"]),
			true
	case domain.EventRewardClaimed:
		return "Reward claimed",
			fmt.Sprintf("Battle %v: %v claimed %v %v",
				rec.Detail["battle_id"], rec.Detail["participant"],
				rec.Detail["payout"], rec.Detail["asset"]),
			true
	case domain.EventFeesWithdrawn:
		return "Fees withdrawn",
			fmt.Sprintf("Operator withdrew %v from the fee pool", rec.Detail["amount"]),
			true
	default:
		return "", "", false
	}
}
