package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/skillbridge/activity"
	"github.com/BaSui01/skillbridge/config"
	"github.com/BaSui01/skillbridge/internal/telemetry"
	"github.com/BaSui01/skillbridge/skill"
	"github.com/BaSui01/skillbridge/skill/auth"
	"github.com/BaSui01/skillbridge/skill/client"
	"github.com/BaSui01/skillbridge/skill/dialog"
	"github.com/BaSui01/skillbridge/state"
	"github.com/BaSui01/skillbridge/turn"
)

// cancelCommand 输入该行时取消当前技能会话
const cancelCommand = "/cancel"

// =============================================================================
// 💬 invoke 命令
// =============================================================================

func runInvoke(args []string) {
	fs := flag.NewFlagSet("invoke", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	skillID := fs.String("skill", "", "Skill id from the skills section")
	event := fs.String("event", "", "Begin with an event of this name")
	transport := fs.String("transport", "", "Transport override: http or ws")
	conversation := fs.String("conversation", "", "Conversation id (default: random)")
	verbose := fs.Bool("verbose", false, "Print trace activities")
	_ = fs.Parse(args)

	_, cfg := loadConfig(*configPath)
	if *transport != "" {
		cfg.Client.Transport = *transport
	}

	logger, _ := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() { _ = otelProviders.Shutdown(context.Background()) }()

	iv, cleanup, err := newInvoker(ctx, cfg, *skillID, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invoke: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	iv.event = *event
	iv.verbose = *verbose
	if *conversation != "" {
		iv.conversationID = *conversation
	}

	if err := iv.run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "invoke: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// 🔁 会话循环
// =============================================================================

// invoker 以根机器人身份把 stdin 的每一行作为一个轮次转发给技能
type invoker struct {
	botID          string
	hostEndpoint   string
	skill          skill.Skill
	client         dialog.SkillClient
	state          *state.ConversationState
	conversationID string
	channelID      string
	event          string
	verbose        bool
	out            io.Writer
	logger         *zap.Logger
}

// newInvoker 按配置组装技能客户端与会话状态
func newInvoker(ctx context.Context, cfg *config.Config, skillID string, logger *zap.Logger) (*invoker, func(), error) {
	sc, ok := cfg.Skill(skillID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", skill.ErrUnknownSkill, skillID)
	}
	sk := skill.Skill{ID: sc.ID, AppID: sc.AppID, Endpoint: sc.Endpoint}

	var issuer *auth.Issuer
	if cfg.Auth.Enabled {
		var err error
		issuer, err = auth.NewIssuer(cfg.Bot.AppID, cfg.Auth.Issuer, []byte(cfg.Auth.Secret), cfg.Auth.TokenTTL)
		if err != nil {
			return nil, nil, err
		}
	}

	backend, err := openStateBackend(ctx, cfg, nil, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanups := []func(){func() { _ = backend.Close(context.Background()) }}

	var skillClient dialog.SkillClient
	switch cfg.Client.Transport {
	case "ws":
		stream := client.NewStream(client.StreamOptions{
			Issuer:       issuer,
			MaxChunkSize: cfg.Streaming.MaxChunkSize,
			RateLimit:    cfg.Client.RateLimit,
			Burst:        cfg.Client.Burst,
			Logger:       logger,
		})
		cleanups = append(cleanups, func() { _ = stream.Close() })
		skillClient = stream
	default:
		skillClient = client.NewHTTP(client.HTTPOptions{
			Timeout:          cfg.Client.Timeout,
			Issuer:           issuer,
			RateLimit:        cfg.Client.RateLimit,
			Burst:            cfg.Client.Burst,
			MaxResponseBytes: cfg.Client.MaxResponseBytes,
			Logger:           logger,
		})
	}

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	return &invoker{
		botID:          cfg.Bot.AppID,
		hostEndpoint:   cfg.Bot.HostEndpoint,
		skill:          sk,
		client:         skillClient,
		state:          backend.conversationState(nil, logger),
		conversationID: uuid.NewString(),
		channelID:      "cli",
		out:            os.Stdout,
		logger:         logger,
	}, cleanup, nil
}

// run 逐行处理输入直到 EOF 或 ctx 结束
func (iv *invoker) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintf(iv.out, "conversation %s with skill %q; %s ends the engagement\n", iv.conversationID, iv.skill.ID, cancelCommand)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res, err := iv.turn(ctx, line)
		if err != nil {
			var invokeErr *dialog.InvokeError
			if errors.As(err, &invokeErr) {
				fmt.Fprintf(iv.out, "skill error: %v\n", err)
				continue
			}
			return err
		}
		iv.report(res)
	}
	return scanner.Err()
}

// turn 运行一个轮次：未接入时开始会话，接入中继续或取消
func (iv *invoker) turn(ctx context.Context, line string) (dialog.TurnResult, error) {
	tc := turn.NewTranscript(iv.inbound(line), iv.printTrace)

	e, _, err := dialog.LoadEngagement(ctx, iv.state, tc)
	if err != nil {
		return dialog.TurnResult{}, err
	}
	if e != nil && e.State == dialog.StateEnded {
		e = nil
	}

	d, err := dialog.New(dialog.Options{
		BotID:        iv.botID,
		Client:       iv.client,
		Skill:        iv.skill,
		HostEndpoint: iv.hostEndpoint,
		State:        iv.state,
		Engagement:   e,
		Logger:       iv.logger,
	})
	if err != nil {
		return dialog.TurnResult{}, err
	}

	var res dialog.TurnResult
	switch {
	case !d.Engagement().IsActive():
		if line == cancelCommand {
			return dialog.TurnResult{Status: dialog.StatusComplete}, nil
		}
		res, err = d.BeginDialog(ctx, &dialog.Context{Turn: tc}, iv.beginArgs(line))
	case line == cancelCommand:
		err = d.EndDialog(ctx, tc, dialog.ReasonCancelCalled)
		res = dialog.TurnResult{Status: dialog.StatusComplete}
	default:
		res, err = d.ContinueDialog(ctx, &dialog.Context{Turn: tc})
	}
	if err != nil {
		return dialog.TurnResult{}, err
	}

	if err := iv.state.SaveChanges(ctx, tc, false); err != nil {
		return dialog.TurnResult{}, fmt.Errorf("save conversation state: %w", err)
	}
	// 接入结束后不再保留缓存
	if res.Status == dialog.StatusComplete {
		if err := iv.state.Forget(tc); err != nil {
			return dialog.TurnResult{}, err
		}
	}
	return res, nil
}

func (iv *invoker) beginArgs(line string) *dialog.Args {
	if iv.event != "" {
		return &dialog.Args{SkillID: iv.skill.ID, ActivityType: activity.TypeEvent, Name: iv.event, Value: line}
	}
	return &dialog.Args{SkillID: iv.skill.ID, ActivityType: activity.TypeMessage}
}

func (iv *invoker) inbound(text string) *activity.Activity {
	act := activity.NewMessage(text)
	act.ChannelID = iv.channelID
	act.Conversation = &activity.ConversationAccount{ID: iv.conversationID}
	act.From = &activity.ChannelAccount{ID: "cli-user", Role: activity.RoleUser}
	act.Recipient = &activity.ChannelAccount{ID: iv.botID, Role: activity.RoleBot}
	return act
}

func (iv *invoker) printTrace(_ context.Context, e turn.Entry) {
	if !iv.verbose || e.Activity == nil || e.Activity.Type != activity.TypeTrace {
		return
	}
	fmt.Fprintf(iv.out, "  [trace] %s %s\n", e.Activity.Name, e.Activity.Label)
}

func (iv *invoker) report(res dialog.TurnResult) {
	switch res.Status {
	case dialog.StatusComplete:
		fmt.Fprintln(iv.out, "engagement ended")
	default:
		fmt.Fprintf(iv.out, "sent to %s; replies arrive at %s\n", iv.skill.ID, iv.hostEndpoint)
	}
}
