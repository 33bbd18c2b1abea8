// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ForWorkCodes/learn-en-bot/internal/app"
	"github.com/ForWorkCodes/learn-en-bot/internal/domain/content"
	"github.com/ForWorkCodes/learn-en-bot/internal/domain/user"
	"github.com/ForWorkCodes/learn-en-bot/internal/infra/scheduler"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Handlers wires bot commands and inline-menu callbacks to the application
// services. The pendingTime set tracks chats that pressed the set-time button
// and owe us a HH:MM reply.
type Handlers struct {
	users     user.Repository
	service   *app.AssignmentService
	scheduler *scheduler.LessonScheduler
	tts       content.Synthesizer
	logger    *logrus.Entry

	mu          sync.Mutex
	pendingTime map[int64]bool
}

func NewHandlers(
	users user.Repository,
	service *app.AssignmentService,
	sched *scheduler.LessonScheduler,
	tts content.Synthesizer,
	baseLogger *logrus.Entry,
) *Handlers {
	return &Handlers{
		users:       users,
		service:     service,
		scheduler:   sched,
		tts:         tts,
		logger:      baseLogger,
		pendingTime: make(map[int64]bool),
	}
}

// Register attaches every command, callback and free-text handler to the bot.
func (h *Handlers) Register(ctx context.Context, b *telebot.Bot) {
	b.Handle("/start", func(c telebot.Context) error {
		logCtx := h.logger.WithField("command", "/start").WithField("sender_id", c.Sender().ID)
		logCtx.Info("Processing /start command")

		u, err := h.ensureUser(ctx, c)
		if err != nil {
			logCtx.WithError(err).Error("Failed to register user on /start")
			return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
		}
		return c.Send(
			"Привет! Я помогу в изучении английского: каждый день присылаю фразовый глагол с примерами.\n\n"+
				"Нажми «Напомнить фразовый глагол», чтобы получить глагол дня, и напиши своё предложение с ним — я проверю.",
			MainMenu(u.SendAudio),
		)
	})

	b.Handle("/ping", func(c telebot.Context) error {
		return c.Send("pong")
	})

	b.Handle("/lesson", func(c telebot.Context) error {
		return h.deliverLesson(ctx, c, false)
	})

	b.Handle("/new", func(c telebot.Context) error {
		return h.deliverLesson(ctx, c, true)
	})

	b.Handle("/settime", func(c telebot.Context) error {
		logCtx := h.logger.WithField("command", "/settime").WithField("sender_id", c.Sender().ID)

		arg := strings.TrimSpace(c.Message().Payload)
		if arg == "" {
			u, err := h.ensureUser(ctx, c)
			if err != nil {
				logCtx.WithError(err).Error("Failed to resolve user for /settime")
				return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
			}
			h.markPendingTime(c.Sender().ID)
			return c.Send("Напиши время в формате ЧЧ:ММ, например 09:30.", timeSettingsMenu(u.SendAudio))
		}
		return h.applyDailyTime(ctx, c, arg, logCtx)
	})

	b.Handle("/canceltime", func(c telebot.Context) error {
		logCtx := h.logger.WithField("command", "/canceltime").WithField("sender_id", c.Sender().ID)

		u, err := h.ensureUser(ctx, c)
		if err != nil {
			logCtx.WithError(err).Error("Failed to resolve user for /canceltime")
			return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
		}
		h.clearPendingTime(c.Sender().ID)
		if err := h.users.ClearDailyTime(ctx, u.ID); err != nil {
			logCtx.WithError(err).Error("Failed to clear daily time")
			return c.Send("Не получилось сбросить время. Попробуйте позже.")
		}
		if err := h.scheduler.RescheduleUser(ctx, u.ID); err != nil {
			logCtx.WithError(err).Error("Failed to reschedule user after time reset")
		}
		return c.Send("Личное время сброшено. Буду присылать глагол по общему расписанию.", MainMenu(u.SendAudio))
	})

	b.Handle("/audio", func(c telebot.Context) error {
		logCtx := h.logger.WithField("command", "/audio").WithField("sender_id", c.Sender().ID)

		arg := strings.ToLower(strings.TrimSpace(c.Message().Payload))
		var enable bool
		switch arg {
		case "on":
			enable = true
		case "off":
			enable = false
		default:
			return c.Send("Используйте `/audio on` или `/audio off`.", &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}
		return h.setAudio(ctx, c, enable, logCtx)
	})

	b.Handle("/subscribe", func(c telebot.Context) error {
		return h.setSubscribed(ctx, c, true)
	})

	b.Handle("/unsubscribe", func(c telebot.Context) error {
		return h.setSubscribed(ctx, c, false)
	})

	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		return h.handleCallback(ctx, c)
	})

	// Free text is either a HH:MM reply to the set-time prompt or a learner's
	// sentence to evaluate. Registered after the command handlers.
	b.Handle(telebot.OnText, func(c telebot.Context) error {
		return h.handleText(ctx, c)
	})
}

func (h *Handlers) handleCallback(ctx context.Context, c telebot.Context) error {
	data := strings.TrimSpace(strings.TrimPrefix(c.Callback().Data, "\f"))
	logCtx := h.logger.WithField("callback", data).WithField("sender_id", c.Sender().ID)
	logCtx.Info("Processing menu callback")

	u, err := h.ensureUser(ctx, c)
	if err != nil {
		logCtx.WithError(err).Error("Failed to resolve user for callback")
		return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
	}

	switch data {
	case setTimeCallback:
		h.markPendingTime(c.Sender().ID)
		if err := c.Send("Напиши время в формате ЧЧ:ММ, например 09:30.", timeSettingsMenu(u.SendAudio)); err != nil {
			logCtx.WithError(err).Error("Failed to send time prompt")
		}
		return c.Respond()

	case cancelTimeCallback:
		h.clearPendingTime(c.Sender().ID)
		if err := c.Send("Ок, оставляю прежнее расписание.", MainMenu(u.SendAudio)); err != nil {
			logCtx.WithError(err).Error("Failed to send cancel confirmation")
		}
		return c.Respond()

	case getVerbNowCallback:
		if err := h.scheduler.DeliverNow(ctx, u, false); err != nil {
			logCtx.WithError(err).Error("On-demand delivery failed")
			return c.Respond(&telebot.CallbackResponse{Text: "Не получилось отправить урок."})
		}
		return c.Respond()

	case getNewVerbCallback:
		if err := h.scheduler.DeliverNow(ctx, u, true); err != nil {
			logCtx.WithError(err).Error("Forced regeneration failed")
			return c.Respond(&telebot.CallbackResponse{Text: "Не получилось обновить урок."})
		}
		return c.Respond()

	case audioOnCallback, audioOffCallback:
		enable := data == audioOnCallback
		if err := h.users.SetSendAudio(ctx, u.ID, enable); err != nil {
			logCtx.WithError(err).Error("Failed to update audio preference")
			return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
		}
		text := "Аудио отключено."
		if enable {
			text = "Аудио включено."
		}
		if err := c.Send(text, MainMenu(enable)); err != nil {
			logCtx.WithError(err).Error("Failed to send audio toggle confirmation")
		}
		return c.Respond()
	}

	logCtx.Warn("Unhandled callback data")
	return c.Respond(&telebot.CallbackResponse{Text: "Неизвестное действие."})
}

func (h *Handlers) handleText(ctx context.Context, c telebot.Context) error {
	text := strings.TrimSpace(c.Text())
	if text == "" {
		return nil
	}
	logCtx := h.logger.WithField("handler", "text").WithField("sender_id", c.Sender().ID)

	u, err := h.ensureUser(ctx, c)
	if err != nil {
		logCtx.WithError(err).Error("Failed to resolve user for text message")
		return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
	}

	if h.takePendingTime(c.Sender().ID) {
		return h.applyDailyTime(ctx, c, text, logCtx)
	}

	feedback, mastered, err := h.service.EvaluateAnswer(ctx, u, text)
	if err != nil {
		logCtx.WithError(err).Error("Failed to evaluate answer")
		return c.Send("Не получилось проверить предложение. Попробуйте ещё раз чуть позже.")
	}
	if mastered {
		logCtx.Info("Assignment mastered")
	}
	if err := c.Send(feedback, MainMenu(u.SendAudio)); err != nil {
		return err
	}
	if u.SendAudio {
		h.sendVoiceReply(ctx, c, feedback, logCtx)
	}
	return nil
}

// applyDailyTime parses a HH:MM string, stores it and moves the user onto a
// personal daily job.
func (h *Handlers) applyDailyTime(ctx context.Context, c telebot.Context, raw string, logCtx *logrus.Entry) error {
	u, err := h.ensureUser(ctx, c)
	if err != nil {
		logCtx.WithError(err).Error("Failed to resolve user for time update")
		return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
	}

	hour, minute, err := parseDailyTime(raw)
	if err != nil {
		h.markPendingTime(c.Sender().ID)
		return c.Send("Не понял время. Напиши в формате ЧЧ:ММ, например 09:30.", timeSettingsMenu(u.SendAudio))
	}

	if err := h.users.SetDailyTime(ctx, u.ID, hour, minute); err != nil {
		logCtx.WithError(err).Error("Failed to store daily time")
		return c.Send("Не получилось сохранить время. Попробуйте позже.")
	}
	if err := h.scheduler.RescheduleUser(ctx, u.ID); err != nil {
		logCtx.WithError(err).Error("Failed to reschedule user after time update")
	}
	logCtx.WithField("daily_time", fmt.Sprintf("%02d:%02d", hour, minute)).Info("Daily time updated")
	return c.Send(fmt.Sprintf("Готово! Буду присылать фразовый глагол в %02d:%02d.", hour, minute), MainMenu(u.SendAudio))
}

func (h *Handlers) deliverLesson(ctx context.Context, c telebot.Context, forceNew bool) error {
	logCtx := h.logger.WithField("command", "/lesson").WithField("force_new", forceNew).WithField("sender_id", c.Sender().ID)

	u, err := h.ensureUser(ctx, c)
	if err != nil {
		logCtx.WithError(err).Error("Failed to resolve user for lesson request")
		return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
	}
	if err := h.scheduler.DeliverNow(ctx, u, forceNew); err != nil {
		logCtx.WithError(err).Error("On-demand lesson delivery failed")
		return c.Send("Не получилось отправить урок. Попробуйте позже.")
	}
	return nil
}

func (h *Handlers) setAudio(ctx context.Context, c telebot.Context, enable bool, logCtx *logrus.Entry) error {
	u, err := h.ensureUser(ctx, c)
	if err != nil {
		logCtx.WithError(err).Error("Failed to resolve user for audio toggle")
		return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
	}
	if err := h.users.SetSendAudio(ctx, u.ID, enable); err != nil {
		logCtx.WithError(err).Error("Failed to update audio preference")
		return c.Send("Не получилось обновить настройку. Попробуйте позже.")
	}
	text := "Аудио отключено."
	if enable {
		text = "Аудио включено."
	}
	return c.Send(text, MainMenu(enable))
}

func (h *Handlers) setSubscribed(ctx context.Context, c telebot.Context, subscribed bool) error {
	command := "/unsubscribe"
	if subscribed {
		command = "/subscribe"
	}
	logCtx := h.logger.WithField("command", command).WithField("sender_id", c.Sender().ID)

	u, err := h.ensureUser(ctx, c)
	if err != nil {
		logCtx.WithError(err).Error("Failed to resolve user for subscription change")
		return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
	}
	if err := h.users.SetSubscribed(ctx, u.ID, subscribed); err != nil {
		logCtx.WithError(err).Error("Failed to update subscription")
		return c.Send("Не получилось обновить подписку. Попробуйте позже.")
	}
	if subscribed {
		return c.Send("Подписка включена: жди фразовый глагол каждый день.", MainMenu(u.SendAudio))
	}
	return c.Send("Подписка выключена. Команда /subscribe вернёт ежедневные уроки.", MainMenu(u.SendAudio))
}

// sendVoiceReply is best-effort: synthesis or upload failures are logged and
// the conversation continues in text.
func (h *Handlers) sendVoiceReply(ctx context.Context, c telebot.Context, text string, logCtx *logrus.Entry) {
	if h.tts == nil {
		return
	}
	audio, err := h.tts.Synthesize(ctx, text)
	if err != nil {
		logCtx.WithError(err).Warn("Voice reply synthesis failed")
		return
	}
	if len(audio) == 0 {
		logCtx.Warn("Voice reply synthesis returned empty audio")
		return
	}
	clip := &telebot.Audio{
		File:     telebot.FromReader(bytes.NewReader(audio)),
		FileName: "feedback.wav",
	}
	if err := c.Send(clip); err != nil {
		logCtx.WithError(err).Warn("Failed to send voice reply")
	}
}

func (h *Handlers) ensureUser(ctx context.Context, c telebot.Context) (*user.User, error) {
	sender := c.Sender()
	if sender == nil {
		return nil, fmt.Errorf("message has no sender")
	}
	return h.users.Upsert(ctx, sender.ID, sender.Username)
}

func (h *Handlers) markPendingTime(chatID int64) {
	h.mu.Lock()
	h.pendingTime[chatID] = true
	h.mu.Unlock()
}

func (h *Handlers) clearPendingTime(chatID int64) {
	h.mu.Lock()
	delete(h.pendingTime, chatID)
	h.mu.Unlock()
}

// takePendingTime reports and consumes the pending flag in one step.
func (h *Handlers) takePendingTime(chatID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pendingTime[chatID] {
		delete(h.pendingTime, chatID)
		return true
	}
	return false
}

// parseDailyTime accepts strict 24-hour HH:MM input, with a single-digit hour
// allowed (9:30 and 09:30 both work).
func parseDailyTime(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
