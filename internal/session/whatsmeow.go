package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

// WhatsmeowClient adapts a whatsmeow client to the Client contract. The
// device credentials live in the same Postgres database as the appointment
// tables, so pairing survives process restarts.
type WhatsmeowClient struct {
	cli    *whatsmeow.Client
	events chan Event
}

func NewWhatsmeowClient(dsn string) (*WhatsmeowClient, error) {
	container, err := sqlstore.New("postgres", dsn, waLog.Stdout("session-store", "ERROR", false))
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	device, err := container.GetFirstDevice()
	if err != nil {
		return nil, fmt.Errorf("failed to load device credentials: %w", err)
	}

	cli := whatsmeow.NewClient(device, waLog.Stdout("session", "ERROR", false))
	// Reconnection is owned by the Manager, with bounded attempts.
	cli.EnableAutoReconnect = false

	c := &WhatsmeowClient{
		cli:    cli,
		events: make(chan Event, 32),
	}
	cli.AddEventHandler(c.onEvent)
	return c, nil
}

func (c *WhatsmeowClient) Connect() error {
	if c.cli.Store.ID == nil {
		// Not paired yet: the QR channel must be opened before dialing.
		qrChan, err := c.cli.GetQRChannel(context.Background())
		if err != nil {
			if !errors.Is(err, whatsmeow.ErrQRStoreContainsID) {
				return fmt.Errorf("failed to open QR channel: %w", err)
			}
		} else {
			go c.pumpQR(qrChan)
		}
	}
	return c.cli.Connect()
}

func (c *WhatsmeowClient) pumpQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		if item.Event == "code" {
			c.emit(Event{Kind: EventQR, QR: item.Code})
		}
	}
}

func (c *WhatsmeowClient) onEvent(raw interface{}) {
	switch raw.(type) {
	case *events.Connected:
		c.emit(Event{Kind: EventConnected})
	case *events.LoggedOut:
		c.emit(Event{Kind: EventLoggedOut})
	case *events.Disconnected:
		c.emit(Event{Kind: EventDisconnected})
	}
}

// emit never blocks the provider's event goroutine; if the buffer is full
// the event is dropped and the Manager recovers via the next one.
func (c *WhatsmeowClient) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}

func (c *WhatsmeowClient) Events() <-chan Event {
	return c.events
}

func (c *WhatsmeowClient) Disconnect() {
	c.cli.Disconnect()
}

func (c *WhatsmeowClient) Logout(_ context.Context) error {
	if c.cli.Store.ID == nil {
		return nil
	}
	return c.cli.Logout()
}

func (c *WhatsmeowClient) IsRegistered(_ context.Context, address string) (bool, error) {
	user := strings.TrimSuffix(address, "@"+types.DefaultUserServer)
	resp, err := c.cli.IsOnWhatsApp([]string{"+" + user})
	if err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	if len(resp) == 0 {
		return false, nil
	}
	return resp[0].IsIn, nil
}

func (c *WhatsmeowClient) SendText(ctx context.Context, address, text string) error {
	jid, err := types.ParseJID(address)
	if err != nil {
		return fmt.Errorf("failed to parse address %q: %w", address, err)
	}
	_, err = c.cli.SendMessage(ctx, jid, &waProto.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
