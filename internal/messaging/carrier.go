package messaging

import "github.com/segmentio/kafka-go"

// Header keys stamped on every published event.
const (
	HeaderEventType   = "event-type"
	HeaderContentType = "content-type"
)

// MessageCarrier exposes a message's headers as an otel TextMapCarrier, so
// trace context rides along with order events next to the event-type header.
type MessageCarrier struct {
	headers *[]kafka.Header
}

func NewMessageCarrier(msg *kafka.Message) *MessageCarrier {
	return &MessageCarrier{headers: &msg.Headers}
}

func (c *MessageCarrier) Get(key string) string {
	return headerValue(*c.headers, key)
}

// Set overwrites a header that is already present.
func (c *MessageCarrier) Set(key, value string) {
	setHeader(c.headers, key, value)
}

func (c *MessageCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func setHeader(headers *[]kafka.Header, key, value string) {
	for i := range *headers {
		if (*headers)[i].Key == key {
			(*headers)[i].Value = []byte(value)
			return
		}
	}
	*headers = append(*headers, kafka.Header{Key: key, Value: []byte(value)})
}
