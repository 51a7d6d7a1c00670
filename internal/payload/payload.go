// Package payload synthesizes the pseudo-random records written during a
// stress run. Generation is a pure function of the task id; the only
// invariant callers rely on is that distinct task ids yield distinct records.
package payload

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Record is one synthetic row keyed by the task id that produced it.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Generator produces records with a fixed payload size.
type Generator struct {
	payloadSize int
}

func NewGenerator(payloadSize int) *Generator {
	if payloadSize <= 0 {
		payloadSize = 256
	}
	return &Generator{payloadSize: payloadSize}
}

// Generate builds the record for a task. The record id is the task id itself
// so the follow-up read can be keyed by it.
func (g *Generator) Generate(taskID string) Record {
	user := uuid.NewString()
	return Record{
		ID:        taskID,
		Name:      fmt.Sprintf("user-%s", user[:8]),
		Email:     fmt.Sprintf("%s@stress.local", user[:13]),
		Payload:   randomString(g.payloadSize),
		CreatedAt: time.Now().UTC(),
	}
}

// randomString generates a random string of given length
func randomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
