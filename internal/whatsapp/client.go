package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"despesas_bot/internal/bot"
	"despesas_bot/internal/config"
	"despesas_bot/internal/logger"

	"github.com/mdp/qrterminal/v3"
	log "github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

const defaultHandleTimeout = 30 * time.Second

var errLimiterClosed = errors.New("rate limiter closed")

var (
	// ErrLoggedOut 会话被注销，需要重新扫码配对
	ErrLoggedOut = errors.New("whatsapp session logged out")
	// ErrStreamReplaced 同一账号在别处连接，本连接被踢下线
	ErrStreamReplaced = errors.New("whatsapp stream replaced by another client")
)

// Handler 把入站消息变成回复，ok=false 表示不回复
type Handler interface {
	Handle(ctx context.Context, msg bot.InboundMessage) (reply string, ok bool)
}

// waClient whatsmeow 客户端中 Bot 用到的部分
type waClient interface {
	Connect() error
	Disconnect()
	AddEventHandler(handler whatsmeow.EventHandler) uint32
	GetQRChannel(ctx context.Context) (<-chan whatsmeow.QRChannelItem, error)
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
}

// Config WhatsApp Bot 配置
type Config struct {
	StoreDialect      string
	StoreDSN          string
	AllowGroups       bool
	SendRatePerSecond int
	Workers           int
	QueueSize         int
	Reconnect         ReconnectPolicy
	HandleTimeout     time.Duration // 单条消息处理超时
	QROutput          io.Writer     // 配对二维码输出，默认 stdout
	OnDrop            func()        // 队列满丢弃消息时调用
}

// Bot WhatsApp 传输层：接收消息、交给 Handler、发送回复、维护连接
type Bot struct {
	client    waClient
	container *sqlstore.Container
	paired    func() bool
	handler   Handler
	pool      *WorkerPool
	limiter   *RateLimiter
	session   *Session
	cfg       Config
	log       *log.Entry

	ctxMu            sync.RWMutex
	runCtx           context.Context
	reconnecting     atomic.Bool
	reconnectPending atomic.Bool
	fatal            chan error
	stopOnce         sync.Once
}

// New 打开凭证存储并创建 whatsmeow 客户端
func New(ctx context.Context, cfg Config, handler Handler) (*Bot, error) {
	if handler == nil {
		return nil, fmt.Errorf("whatsapp handler cannot be nil")
	}

	container, device, err := openDeviceStore(ctx, cfg.StoreDialect, cfg.StoreDSN)
	if err != nil {
		return nil, err
	}

	client := whatsmeow.NewClient(device, newLogger(logger.WithModule("whatsapp"), "Client"))
	// 重连由 ReconnectPolicy 负责
	client.EnableAutoReconnect = false

	b := newBot(client, func() bool { return client.Store.ID != nil }, handler, cfg)
	b.container = container
	return b, nil
}

// InitFromConfig 从应用配置创建 WhatsApp Bot
func InitFromConfig(ctx context.Context, cfg *config.Config, handler Handler, onDrop func()) (*Bot, error) {
	return New(ctx, Config{
		StoreDialect:      cfg.WhatsApp.StoreDialect,
		StoreDSN:          cfg.WhatsApp.StoreDSN,
		AllowGroups:       cfg.WhatsApp.AllowGroups,
		SendRatePerSecond: cfg.WhatsApp.SendRatePerSecond,
		Workers:           cfg.Workers.Count,
		QueueSize:         cfg.Workers.QueueSize,
		Reconnect: ReconnectPolicy{
			Initial:     cfg.WhatsApp.ReconnectInitial,
			Max:         cfg.WhatsApp.ReconnectMax,
			MaxAttempts: cfg.WhatsApp.ReconnectMaxAttempts,
		},
		OnDrop: onDrop,
	}, handler)
}

func newBot(client waClient, paired func() bool, handler Handler, cfg Config) *Bot {
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = defaultHandleTimeout
	}
	if cfg.QROutput == nil {
		cfg.QROutput = os.Stdout
	}

	b := &Bot{
		client:  client,
		paired:  paired,
		handler: handler,
		pool:    NewWorkerPool(cfg.Workers, cfg.QueueSize, cfg.OnDrop),
		limiter: NewRateLimiter(cfg.SendRatePerSecond),
		session: NewSession(),
		cfg:     cfg,
		log:     logger.WithModule("whatsapp"),
		runCtx:  context.Background(),
		fatal:   make(chan error, 1),
	}

	b.session.OnTransition(func(from, to SessionState) {
		b.log.Infof("Session %s -> %s", from, to)
	})
	client.AddEventHandler(b.handleEvent)

	return b
}

// Session 当前会话状态机
func (b *Bot) Session() *Session {
	return b.session
}

// Start 连接 WhatsApp 并阻塞到 ctx 取消或会话无法恢复（应在 goroutine 中运行）
// 未配对时在 QROutput 打印二维码并等待扫码
// 重连耗尽、被注销或被顶替时返回对应错误，由进程管理器决定是否重启
func (b *Bot) Start(ctx context.Context) error {
	b.ctxMu.Lock()
	b.runCtx = ctx
	b.ctxMu.Unlock()

	if err := b.session.Transition(StateConnecting); err != nil {
		return err
	}

	if b.paired() {
		if err := b.client.Connect(); err != nil {
			if !shouldRetryConnect(err) {
				_ = b.session.Transition(StateDisconnected)
				return fmt.Errorf("failed to connect to whatsapp: %w", err)
			}
			b.log.Warnf("Initial connect failed, retrying: %v", err)
			go b.reconnect()
		}
	} else {
		if err := b.pair(ctx); err != nil {
			_ = b.session.Transition(StateDisconnected)
			return err
		}
	}

	select {
	case <-ctx.Done():
		b.log.Info("WhatsApp bot context done")
		return nil
	case err := <-b.fatal:
		b.log.Errorf("WhatsApp bot cannot continue: %v", err)
		return err
	}
}

// fail 上报不可恢复的会话错误，只保留第一个
func (b *Bot) fail(err error) {
	select {
	case b.fatal <- err:
	default:
	}
}

// pair 首次登录：获取二维码通道后连接，直到扫码成功
func (b *Bot) pair(ctx context.Context) error {
	qrChan, err := b.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get whatsapp qr channel: %w", err)
	}
	if err := b.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to whatsapp: %w", err)
	}
	if err := b.session.Transition(StatePairing); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-qrChan:
			if !ok {
				return fmt.Errorf("whatsapp qr channel closed before pairing")
			}
			switch item.Event {
			case "code":
				b.log.Info("Scan the QR code below with WhatsApp (Linked devices)")
				qrterminal.GenerateHalfBlock(item.Code, qrterminal.L, b.cfg.QROutput)
			case "success":
				b.log.Info("WhatsApp pairing succeeded")
				return nil
			case "timeout":
				return fmt.Errorf("whatsapp pairing timed out")
			default:
				if item.Error != nil {
					return fmt.Errorf("whatsapp pairing failed (%s): %w", item.Event, item.Error)
				}
				b.log.Debugf("QR channel event: %s", item.Event)
			}
		}
	}
}

// Stop 停止接收新消息，等待处理中的消息回复完成后断开，可重复调用
func (b *Bot) Stop(ctx context.Context) error {
	var err error
	b.stopOnce.Do(func() {
		b.log.Info("Stopping WhatsApp bot...")
		_ = b.session.Transition(StateClosed)

		b.pool.Shutdown()
		b.client.Disconnect()
		b.limiter.Close()

		if b.container != nil {
			if cerr := b.container.Close(); cerr != nil {
				err = fmt.Errorf("failed to close whatsapp store: %w", cerr)
			}
		}
		b.log.Info("WhatsApp bot stopped")
	})
	return err
}

// Send 按速率限制发送一条文本消息
func (b *Bot) Send(ctx context.Context, recipient string, text string) error {
	jid, err := types.ParseJID(recipient)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}
	if jid.User == "" || jid.Server == "" {
		return fmt.Errorf("invalid recipient %q: missing user or server", recipient)
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate wait: %w", err)
	}
	if _, err := b.client.SendMessage(ctx, jid, textMessage(text)); err != nil {
		return fmt.Errorf("failed to send whatsapp message: %w", err)
	}
	return nil
}

func (b *Bot) baseContext() context.Context {
	b.ctxMu.RLock()
	defer b.ctxMu.RUnlock()
	return b.runCtx
}

func (b *Bot) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		b.enqueue(v)
	case *events.Connected:
		_ = b.session.Transition(StateConnected)
	case *events.Disconnected:
		if b.session.IsClosed() {
			return
		}
		b.log.Warn("WhatsApp connection lost")
		go b.reconnect()
	case *events.LoggedOut:
		b.log.Errorf("WhatsApp session logged out (reason=%v), pairing required", v.Reason)
		_ = b.session.Transition(StateLoggedOut)
		b.fail(ErrLoggedOut)
	case *events.StreamReplaced:
		b.log.Warn("WhatsApp stream replaced by another client")
		_ = b.session.Transition(StateDisconnected)
		b.fail(ErrStreamReplaced)
	}
}

func (b *Bot) enqueue(evt *events.Message) {
	msg, ok, reason := extractInbound(evt, b.cfg.AllowGroups)
	if !ok {
		b.log.Debugf("Skip message %s: %s", evt.Info.ID, reason)
		return
	}

	b.pool.Submit(Task{
		Ctx:    b.baseContext(),
		Handle: func(ctx context.Context) { b.process(ctx, msg) },
		OnPanic: func(ctx context.Context, r interface{}) {
			b.reply(ctx, msg, bot.FailureReply)
		},
	})
}

// process 处理一条消息；关闭期间仍允许在超时内完成回复
func (b *Bot) process(parent context.Context, msg bot.InboundMessage) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), b.cfg.HandleTimeout)
	defer cancel()

	reply, ok := b.handler.Handle(ctx, msg)
	if !ok {
		return
	}
	b.reply(ctx, msg, reply)
}

func (b *Bot) reply(ctx context.Context, msg bot.InboundMessage, text string) {
	if err := b.Send(ctx, msg.ChatJID, text); err != nil {
		b.log.WithField("chat", msg.ChatJID).Errorf("Failed to deliver reply: %v", err)
	}
}

// reconnect 按退避策略重连，同一时间只有一个重连循环
// 循环运行期间到达的断线事件记为 pending，循环结束后再跑一轮
func (b *Bot) reconnect() {
	b.reconnectPending.Store(true)
	for b.reconnectPending.Load() {
		if !b.reconnecting.CompareAndSwap(false, true) {
			return
		}
		b.reconnectPending.Store(false)
		ok := b.runReconnect()
		b.reconnecting.Store(false)
		if !ok {
			return
		}
	}
}

// runReconnect 执行一轮重连，返回 false 表示放弃
func (b *Bot) runReconnect() bool {
	if err := b.session.Transition(StateReconnecting); err != nil {
		b.log.Debugf("Skip reconnect: %v", err)
		return false
	}

	connect := func() error {
		if b.session.IsClosed() {
			return context.Canceled
		}
		_ = b.session.Transition(StateConnecting)
		err := b.client.Connect()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, whatsmeow.ErrAlreadyConnected):
			_ = b.session.Transition(StateConnected)
			return nil
		}
		b.log.Warnf("Reconnect failed: %v", err)
		_ = b.session.Transition(StateReconnecting)
		return err
	}

	onAttempt := func(attempt int, delay time.Duration) {
		b.log.Infof("Reconnect attempt %d in %s", attempt, delay.Round(time.Millisecond))
	}

	ctx := b.baseContext()
	err := reconnectLoop(ctx, b.cfg.Reconnect, time.Now().UnixNano(), connect, onAttempt)
	if err == nil {
		return true
	}
	if b.session.IsClosed() || ctx.Err() != nil {
		return false
	}

	b.log.Errorf("WhatsApp reconnect gave up: %v", err)
	_ = b.session.Transition(StateDisconnected)
	b.fail(fmt.Errorf("whatsapp reconnect gave up: %w", err))
	return false
}
