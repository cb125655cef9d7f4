package interfaces

import (
	"github.com/google/wire"

	"github.com/jarvishq/jarvis-server/internal/interfaces/httpserver"
	"github.com/jarvishq/jarvis-server/internal/interfaces/httpserver/handlers/messagehandler"
	"github.com/jarvishq/jarvis-server/internal/interfaces/httpserver/handlers/telegramhandler"
)

var InterfacesProvider = wire.NewSet(
	messagehandler.NewMessageHandler,
	telegramhandler.NewWebhookHandler,
	httpserver.NewHTTPServer,
)
