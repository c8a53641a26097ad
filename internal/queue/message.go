package queue

import (
    "encoding/json"
    "errors"
    "fmt"
)

// Message is the payload of a conversion job entry.
type Message struct {
    JobID   string `json:"job_id"`
    Attempt int    `json:"attempt"`
}

func (m Message) Encode() []byte {
    b, _ := json.Marshal(m)
    return b
}

// Decode parses a payload produced by Encode.
func Decode(b []byte) (Message, error) {
    var m Message
    if err := json.Unmarshal(b, &m); err != nil { return m, fmt.Errorf("decode message: %w", err) }
    if m.JobID == "" { return m, errors.New("decode message: missing job_id") }
    return m, nil
}
