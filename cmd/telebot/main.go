// Command telebot serves the sales assistant over Telegram long polling.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

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

// replyLimit is Telegram's per-message ceiling.
const replyLimit = 4096

type botConfig struct {
	BotToken      string `envconfig:"BOT_TOKEN" split_words:"true" required:"true"`
	UpdateTimeout int    `envconfig:"UPDATE_TIMEOUT" split_words:"true" default:"30"`
}

type orderConfig struct {
	EventsDestination string `envconfig:"EVENTS_DESTINATION" split_words:"true"`
}

const welcomeText = `🍼 **Chào mừng %s đến với Milk Sell Bot!**

Tôi là trợ lý AI chuyên tư vấn sữa cho trẻ em. Tôi có thể giúp bạn:

🔍 **Tìm kiếm sản phẩm** - Tìm sữa theo tên, thương hiệu
💰 **Lọc theo giá** - Tìm sữa phù hợp với ngân sách
👶 **Tư vấn theo tuổi** - Gợi ý sữa phù hợp với độ tuổi
🏷️ **Sản phẩm khuyến mãi** - Xem sữa đang giảm giá
📊 **Thống kê** - Xem tổng quan database
🛒 **Đặt hàng** - Mua sản phẩm trực tiếp

**Hãy thử hỏi tôi:**
• "Tôi muốn tìm sữa Vinamilk"
• "Sữa nào rẻ nhất?"
• "Con tôi 15 tháng, sữa nào phù hợp?"
• "Có sữa nào đang giảm giá không?"`

const helpText = `🆘 **Hướng dẫn sử dụng Milk Sell Bot**

**Các câu hỏi bạn có thể hỏi:**

🔍 **Tìm kiếm:**
• "Tôi muốn tìm sữa [tên thương hiệu]"
• "Có sữa [tên sản phẩm] không?"

💰 **Theo giá:**
• "Sữa nào rẻ nhất?"
• "Tôi muốn sữa dưới 200k"
• "Sữa từ 300k đến 500k"

👶 **Theo tuổi:**
• "Con tôi [X] tháng tuổi, sữa nào phù hợp?"
• "Sữa cho trẻ sơ sinh"
• "Sữa cho bé 2 tuổi"

🏷️ **Khuyến mãi:**
• "Có sữa nào đang giảm giá không?"
• "Sản phẩm khuyến mãi"

🛒 **Đặt hàng:**
• "Tôi muốn mua sản phẩm ID [số], số lượng [X]"
• "Đặt hàng [tên sản phẩm]"

📊 **Thông tin:**
• "Thống kê database"
• "Có những thương hiệu nào?"
• "Các loại sữa có sẵn"

**Lệnh bot:**
/start - Bắt đầu sử dụng bot
/help - Xem hướng dẫn này
/status - Kiểm tra trạng thái bot`

const statusText = `✅ **Bot Status: ACTIVE**

🤖 Agent: Initialized
💾 Memory: Connected
🔧 Tools: Loaded
🗄️ Database: Connected

Bot sẵn sàng phục vụ! Hãy hỏi tôi về sữa nhé 🍼`

// buttonQuestions maps quick-action buttons to the question they stand for.
var buttonQuestions = map[string]string{
	"search_products": "Có những loại sữa nào?",
	"cheap_products":  "Sữa nào rẻ nhất?",
	"discounted":      "Có sữa nào đang giảm giá không?",
	"stats":           "Cho tôi thống kê database",
	"age_advice":      "Tư vấn sữa cho bé 12 tháng tuổi",
	"brands":          "Có những thương hiệu nào?",
}

type bot struct {
	api     *tgbotapi.BotAPI
	service *chatx.Service
	log     zerolog.Logger
	now     func() time.Time
}

func (b *bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil && update.Message.IsCommand():
		b.handleCommand(update.Message)
	case update.Message != nil && update.Message.From != nil && update.Message.Text != "":
		b.log.Info().
			Int64("user_id", update.Message.From.ID).
			Str("first_name", update.Message.From.FirstName).
			Msg("message received")
		b.answer(ctx, update.Message.Chat.ID, update.Message.From.ID, update.Message.Text)
	}
}

func (b *bot) handleCommand(message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		msg := tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf(welcomeText, message.From.FirstName))
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.ReplyMarkup = quickActions()
		b.send(msg)
	case "help":
		msg := tgbotapi.NewMessage(message.Chat.ID, helpText)
		msg.ParseMode = tgbotapi.ModeMarkdown
		b.send(msg)
	case "status":
		msg := tgbotapi.NewMessage(message.Chat.ID, statusText)
		msg.ParseMode = tgbotapi.ModeMarkdown
		b.send(msg)
	}
}

func (b *bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warn().Err(err).Msg("callback ack failed")
	}
	if query.Message == nil {
		return
	}
	question, ok := buttonQuestions[query.Data]
	if !ok {
		question = "Xin chào!"
	}
	b.answer(ctx, query.Message.Chat.ID, query.From.ID, question)
}

// answer runs one chat turn for a Telegram user. Sessions roll over daily
// so yesterday's conversation does not leak into today's context.
func (b *bot) answer(ctx context.Context, chatID, userID int64, text string) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.log.Warn().Err(err).Msg("typing action failed")
	}

	reply, err := b.service.HandleTurn(ctx, strconv.FormatInt(userID, 10), b.sessionFor(userID), text)
	if err != nil {
		b.log.Error().Err(err).Int64("user_id", userID).Msg("turn failed")
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Xin lỗi, đã có lỗi xảy ra: %v\n\nVui lòng thử lại hoặc liên hệ admin.", err)))
		return
	}

	for _, chunk := range chunkText(reply, replyLimit) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeMarkdown
		b.send(msg)
	}
}

func (b *bot) sessionFor(userID int64) string {
	return fmt.Sprintf("tg_%d_%s", userID, b.now().Format("20060102"))
}

// send delivers msg, retrying as plain text when Telegram rejects the
// model's markdown.
func (b *bot) send(msg tgbotapi.MessageConfig) {
	_, err := b.api.Send(msg)
	if err == nil {
		return
	}
	if msg.ParseMode != "" {
		msg.ParseMode = ""
		if _, retryErr := b.api.Send(msg); retryErr == nil {
			return
		}
	}
	b.log.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("send failed")
}

func quickActions() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 Tìm sản phẩm", "search_products"),
			tgbotapi.NewInlineKeyboardButtonData("💰 Sản phẩm rẻ", "cheap_products"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏷️ Giảm giá", "discounted"),
			tgbotapi.NewInlineKeyboardButtonData("📊 Thống kê", "stats"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👶 Tư vấn theo tuổi", "age_advice"),
			tgbotapi.NewInlineKeyboardButtonData("🏢 Thương hiệu", "brands"),
		),
	)
}

// chunkText splits s into at most limit runes per piece.
func chunkText(s string, limit int) []string {
	runes := []rune(s)
	if len(runes) <= limit {
		return []string{s}
	}
	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

func main() {
	log := logx.Component("telebot")

	botCfg := configx.MustNew[botConfig]("TELEGRAM")
	chatCfg := configx.MustNew[chatx.Config]("CHAT")
	storeCfg := configx.MustNew[catalog.Config]("CATALOG")
	memoryCfg := configx.MustNew[memory.Config]("MEMORY")
	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	mailCfg := configx.MustNew[mail.Config]("SMTP")
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	orderCfg := configx.MustNew[orderConfig]("ORDER")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	api, err := tgbotapi.NewBotAPI(botCfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram auth failed")
	}
	log.Info().Str("username", api.Self.UserName).Int("tools", len(registry.Infos())).Msg("telegram bot authorized")

	b := &bot{api: api, service: service, log: log, now: time.Now}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = botCfg.UpdateTimeout
	updates := api.GetUpdatesChan(updateCfg)

	// Updates that queued while the bot was down are stale for a chat bot.
	time.Sleep(500 * time.Millisecond)
	updates.Clear()

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	log.Info().Msg("telegram bot is running")
	for update := range updates {
		b.handleUpdate(ctx, update)
	}
	log.Info().Msg("telegram bot stopped")
}
