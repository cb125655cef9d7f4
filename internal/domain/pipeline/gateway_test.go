package pipeline

import (
	"strings"
	"testing"
)

func TestHandleMessage_GatewayRejections(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantMsg string
	}{
		{
			name:    "empty message",
			text:    "",
			wantMsg: "Não recebi nenhum texto. Pode escrever sua mensagem?",
		},
		{
			name:    "whitespace only",
			text:    "   \n\t ",
			wantMsg: "Não recebi nenhum texto. Pode escrever sua mensagem?",
		},
		{
			name:    "over the length limit",
			text:    strings.Repeat("a", 21),
			wantMsg: "Sua mensagem é muito longa. Pode resumir em menos palavras?",
		},
		{
			name:    "drop table",
			text:    "DROP TABLE users",
			wantMsg: "Essa mensagem contém conteúdo que não posso processar.",
		},
		{
			name:    "delete from statement",
			text:    "delete from expenses;",
			wantMsg: "Essa mensagem contém conteúdo que não posso processar.",
		},
		{
			name:    "piggybacked drop",
			text:    "oi; drop database",
			wantMsg: "Essa mensagem contém conteúdo que não posso processar.",
		},
		{
			name:    "truncate",
			text:    "TRUNCATE TABLE gastos",
			wantMsg: "Essa mensagem contém conteúdo que não posso processar.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{MaxMessageLength: 20})

			reply := h.handle(t, "tg:1", tt.text)
			if reply != tt.wantMsg {
				t.Errorf("reply = %q, want %q", reply, tt.wantMsg)
			}
			if h.classifier.classifyCalls != 0 {
				t.Error("classifier must not run on a rejected message")
			}
			if len(h.users.byID) != 0 {
				t.Error("rejected message must not create a user")
			}
		})
	}
}

func TestHandleMessage_LengthLimitCountsRunes(t *testing.T) {
	h := newHarness(t, Options{MaxMessageLength: 20})

	// 20 two-byte runes: within the limit even though the byte count is 40.
	h.classifier.classifications = nil
	reply := h.handle(t, "tg:1", strings.Repeat("é", 20))
	if reply == "Sua mensagem é muito longa. Pode resumir em menos palavras?" {
		t.Fatalf("20 runes were rejected as too long")
	}
}
