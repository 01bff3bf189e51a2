package receivers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	bct "github.com/bctron/bctron/pkg"
	"github.com/bctron/bctron/pkg/conductor"
)

func NewCallbackSender(config bct.CallbackConfig, bus bct.MessageBus) CallbackSender {
	return CallbackSender{
		make(chan bct.Message, 1000),
		config.Path,
		config.HMACSecret,
		bus,
		&http.Client{Timeout: 30 * time.Second},
	}
}

// CallbackSender POSTs bus messages to an HTTP endpoint. Each message is
// attempted once; failures are reported on the bus and not retried.
type CallbackSender struct {
	// incomming msgs
	Rec        chan bct.Message
	Path       string
	HMACSecret string
	Bus        bct.MessageBus
	client     *http.Client
}

// Implements bct.MessageSubscriber
func (s CallbackSender) GetChan() chan bct.Message {
	return s.Rec
}

// Implements conductor.Service
func (s CallbackSender) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		started <- true
		for {
			select {
			// handle stopping the service
			case <-stop:
				close(stopped)
				return
			case msg, ok := <-s.Rec:
				if !ok {
					<-stop
					close(stopped)
					return
				}
				if err := s.post(msg); err != nil {
					s.Bus.Send(bct.SYS_MSG, fmt.Sprintf("CallbackSender: %s: %v", s.Path, err))
				}
			}
		}
	}()
	return nil
}

// Reads config and sets up any configured callbacks
func SetupCallbacks(cond *conductor.Conductor, bus bct.MessageBus, conf bct.Config) {
	for name, c := range conf.Callbacks {
		s := NewCallbackSender(c, bus)
		cond.Service(fmt.Sprintf("Callback sender for: %s", c.Path), s)

		types, invalid := bct.LookupEventTypes(c.Types)
		for _, t := range invalid {
			fmt.Printf("⚠️  Callback %s: ignoring invalid message type: %s\n", name, t)
		}
		bus.Register(s, callbackTypes(types)...)
	}
}

// callbackTypes expands ALL into the concrete categories and drops SYS.
// Callback failures are reported as SYS messages, so a sender that could
// receive SYS would post its own failures back out forever.
func callbackTypes(types []bct.EventType) []bct.EventType {
	seen := map[string]bool{}
	out := []bct.EventType{}
	add := func(t bct.EventType) {
		if t.Type() == "SYS" || t.Type() == "ALL" || seen[t.Type()] {
			return
		}
		seen[t.Type()] = true
		out = append(out, t)
	}
	for _, t := range types {
		if t.Type() == "ALL" {
			for _, x := range bct.EVENT_TYPES {
				add(x)
			}
			continue
		}
		add(t)
	}
	return out
}

func generateSha256HMAC(timestamp string, payload []byte, secret string) string {
	if secret == "" {
		return ""
	}

	dataToSign := []byte(fmt.Sprintf("%s.%s", timestamp, string(payload)))
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(dataToSign)

	return hex.EncodeToString(h.Sum(nil))
}

type callbackPayload struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

func (s CallbackSender) post(msg bct.Message) error {
	body, err := json.Marshal(callbackPayload{
		Type:    msg.EventType.Type(),
		Event:   fmt.Sprint(msg.EventType),
		ID:      msg.ID,
		Payload: msg.Message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", s.Path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.HMACSecret != "" {
		timestampStr := fmt.Sprintf("%d", time.Now().Unix())
		signature := generateSha256HMAC(timestampStr, body, s.HMACSecret)
		req.Header.Set("X-BCTron-Signature", fmt.Sprintf("sha256=%s", signature))
		req.Header.Set("X-BCTron-Timestamp", timestampStr)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response status code: %d", resp.StatusCode)
	}
	return nil
}
