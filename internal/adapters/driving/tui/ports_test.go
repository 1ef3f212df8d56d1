package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPorts(t *testing.T) {
	chat := &MockChatService{}
	training := &MockTrainingService{}

	ports := NewPorts(chat, training)

	assert.Equal(t, chat, ports.Chat)
	assert.Equal(t, training, ports.Training)
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ports   *Ports
		wantErr error
	}{
		{"chat and training", &Ports{Chat: &MockChatService{}, Training: &MockTrainingService{}}, nil},
		{"chat only", &Ports{Chat: &MockChatService{}}, nil},
		{"missing chat", &Ports{Training: &MockTrainingService{}}, ErrMissingChatService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
