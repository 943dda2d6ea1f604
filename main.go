// Command milk-sell-agent runs the sales assistant as an interactive
// terminal chat.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	agentx "github.com/trungdn/milk-sell-agent/agent"
	"github.com/trungdn/milk-sell-agent/agent/prompt"
	toolx "github.com/trungdn/milk-sell-agent/agent/tool"
	chatx "github.com/trungdn/milk-sell-agent/chat"
	"github.com/trungdn/milk-sell-agent/mail"
	configx "github.com/trungdn/milk-sell-agent/pkg/config"
	logx "github.com/trungdn/milk-sell-agent/pkg/logger"
	_ "github.com/trungdn/milk-sell-agent/pkg/logger/autoload"
	openrouterx "github.com/trungdn/milk-sell-agent/pkg/openrouter"
	qstashx "github.com/trungdn/milk-sell-agent/pkg/qstash"
	"github.com/trungdn/milk-sell-agent/store/catalog"
	"github.com/trungdn/milk-sell-agent/store/memory"
)

type appConfig struct {
	UserID    string `envconfig:"USER_ID" split_words:"true" default:"cli-user"`
	SessionID string `envconfig:"SESSION_ID" split_words:"true"`
}

type orderConfig struct {
	EventsDestination string `envconfig:"EVENTS_DESTINATION" split_words:"true"`
}

func main() {
	log := logx.Component("cli")

	appCfg := configx.MustNew[appConfig]("CHAT")
	chatCfg := configx.MustNew[chatx.Config]("CHAT")
	storeCfg := configx.MustNew[catalog.Config]("CATALOG")
	memoryCfg := configx.MustNew[memory.Config]("MEMORY")
	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	mailCfg := configx.MustNew[mail.Config]("SMTP")
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	orderCfg := configx.MustNew[orderConfig]("ORDER")

	ctx := context.Background()

	store := catalog.NewStore(*storeCfg)
	if err := store.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("catalog connect failed")
	}
	defer store.Close()

	history, err := memory.New(ctx, *memoryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("memory store init failed")
	}
	defer history.Close()

	llm := openrouterx.NewClient(*openRouterCfg)
	if llm == nil {
		log.Fatal().Msg("openrouter client init failed, check OPENROUTER_API_KEY")
	}

	mailer := mail.FromConfig(*mailCfg)

	var saleOpts []toolx.SaleOption
	if qstashCfg.URL != "" && orderCfg.EventsDestination != "" {
		publisher, err := qstashx.NewClient(*qstashCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("qstash init failed")
		}
		saleOpts = append(saleOpts, toolx.WithEventPublisher(publisher, orderCfg.EventsDestination))
	}
	sale := toolx.NewSale(store, mailer, saleOpts...)
	registry := toolx.NewRegistry(store, sale)

	orchestrator, err := agentx.New(llm, registry, agentx.Config{
		Model:               openRouterCfg.Model,
		SystemPrompt:        prompt.Sales(),
		MaxCompletionTokens: openRouterCfg.MaxCompletionToken,
		Temperature:         openRouterCfg.Temperature,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("agent init failed")
	}

	service, err := chatx.NewService(orchestrator, history, *chatCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("chat service init failed")
	}

	sessionID := strings.TrimSpace(appCfg.SessionID)
	if sessionID == "" {
		sessionID = "cli-" + uuid.NewString()
	}
	log.Info().Str("user_id", appCfg.UserID).Str("session_id", sessionID).Int("tools", len(registry.Infos())).Msg("chat ready")

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Chatbot is ready! Type 'exit', 'quit', or 'q' to exit.")
	fmt.Println(strings.Repeat("=", 60))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return
		}
		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "exit", "quit", "q", "":
			fmt.Println("Goodbye!")
			return
		}

		fmt.Print("Bot: ")
		answer, err := service.HandleTurn(ctx, appCfg.UserID, sessionID, query)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			fmt.Printf("\nError: %v\n", err)
			continue
		}
		fmt.Println(answer)
	}
}
