package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/jarvishq/jarvis-server/internal/infrastructure/metrics"
)

// dangerousPatterns are payload shapes refused before any processing.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)drop\s+table`),
	regexp.MustCompile(`(?i)delete\s+from\s+\w+\s*;`),
	regexp.MustCompile(`(?i);\s*drop\b`),
	regexp.MustCompile(`(?i)truncate\s+table`),
}

// runGateway admits or rejects the raw message. A rejection short-circuits
// straight to output with a worded reply; true means routing may proceed.
func (p *Pipeline) runGateway(_ context.Context, st *TurnState) bool {
	st.Stage = StageGateway
	trimmed := strings.TrimSpace(st.Inbound)

	if trimmed == "" {
		metrics.RecordGatewayRejection("empty")
		st.Reply = "Não recebi nenhum texto. Pode escrever sua mensagem?"
		return false
	}

	if len([]rune(trimmed)) > p.opts.MaxMessageLength {
		metrics.RecordGatewayRejection("too_long")
		st.Reply = "Sua mensagem é muito longa. Pode resumir em menos palavras?"
		return false
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(trimmed) {
			metrics.RecordGatewayRejection("disallowed_pattern")
			p.logger.Warn().Str("identity", st.Identity).Msg("rejected message with disallowed pattern")
			st.Reply = "Essa mensagem contém conteúdo que não posso processar."
			return false
		}
	}

	st.Inbound = trimmed
	return true
}
