package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"StoreSupport/internal/config"
	"StoreSupport/pkg/zlog"

	arkModel "github.com/cloudwego/eino-ext/components/model/ark"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"
)

const (
	TierFast    = "fast"
	TierCapable = "capable"
)

type ChatModelMeta struct {
	Tier     string
	Provider string
	Model    string
}

// Models 两档模型；fast 未配置时退回 capable
type Models struct {
	capable     model.BaseChatModel
	capableMeta ChatModelMeta
	fast        model.BaseChatModel
	fastMeta    ChatModelMeta
}

func NewModels(capable model.BaseChatModel, capableMeta ChatModelMeta, fast model.BaseChatModel, fastMeta ChatModelMeta) *Models {
	capableMeta.Tier = TierCapable
	fastMeta.Tier = TierFast
	return &Models{capable: capable, capableMeta: capableMeta, fast: fast, fastMeta: fastMeta}
}

// Pick 按档位取模型，返回实际使用的档位
func (m *Models) Pick(tier string) (model.BaseChatModel, ChatModelMeta) {
	if tier == TierFast && m.fast != nil {
		return m.fast, m.fastMeta
	}
	if m.capable == nil && m.fast != nil {
		return m.fast, m.fastMeta
	}
	return m.capable, m.capableMeta
}

// NewModelsFromConfig 主力模型必须可用，轻量模型失败只记日志
func NewModelsFromConfig(ctx context.Context, conf *config.Config) (*Models, error) {
	if conf == nil {
		return nil, fmt.Errorf("nil config")
	}
	timeout := time.Duration(conf.AIConfig.Dialogue.LLMTimeoutSeconds) * time.Second

	capable, capableMeta, err := NewChatModelFromConfig(ctx, conf.AIConfig.ChatModel, timeout)
	if err != nil {
		return nil, fmt.Errorf("capable chat model: %w", err)
	}

	var fast model.BaseChatModel
	var fastMeta ChatModelMeta
	if strings.TrimSpace(conf.AIConfig.FastModel.Provider) != "" {
		fast, fastMeta, err = NewChatModelFromConfig(ctx, conf.AIConfig.FastModel, timeout)
		if err != nil {
			zlog.Warn("fast chat model unavailable, using capable model for all turns", zap.Error(err))
			fast = nil
		}
	}

	zlog.Info("chat models ready",
		zap.String("capable_provider", capableMeta.Provider),
		zap.String("capable_model", capableMeta.Model),
		zap.String("fast_model", fastMeta.Model))
	return NewModels(capable, capableMeta, fast, fastMeta), nil
}

func NewChatModelFromConfig(ctx context.Context, mc config.AIChatModelConfig, timeout time.Duration) (model.BaseChatModel, ChatModelMeta, error) {
	provider := strings.ToLower(strings.TrimSpace(mc.Provider))
	modelName := strings.TrimSpace(mc.Model)
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	var temperature *float32
	if mc.Temperature > 0 {
		t := mc.Temperature
		temperature = &t
	}
	var maxTokens *int
	if mc.MaxTokens > 0 {
		n := mc.MaxTokens
		maxTokens = &n
	}

	switch provider {
	case "", "disabled", "none":
		return nil, ChatModelMeta{}, fmt.Errorf("chat model provider not configured")

	case "openai":
		apiKey := strings.TrimSpace(mc.APIKey)
		if apiKey == "" {
			apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		}
		if modelName == "" {
			modelName = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
		}
		baseURL := strings.TrimSpace(mc.BaseURL)
		if baseURL == "" {
			baseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
		}
		if apiKey == "" || modelName == "" {
			return nil, ChatModelMeta{}, fmt.Errorf("openai chat model missing apiKey/model")
		}

		cm, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
			APIKey:      apiKey,
			Model:       modelName,
			BaseURL:     baseURL,
			ByAzure:     mc.ByAzure,
			APIVersion:  strings.TrimSpace(mc.AzureAPIVersion),
			Timeout:     timeout,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			return nil, ChatModelMeta{}, err
		}
		return cm, ChatModelMeta{Provider: "openai", Model: modelName}, nil

	case "ark":
		apiKey := strings.TrimSpace(mc.APIKey)
		accessKey := strings.TrimSpace(mc.AccessKey)
		secretKey := strings.TrimSpace(mc.SecretKey)
		if apiKey == "" {
			apiKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		}
		if accessKey == "" {
			accessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
		}
		if secretKey == "" {
			secretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
		}
		if modelName == "" {
			modelName = strings.TrimSpace(os.Getenv("ARK_MODEL_ID"))
		}
		baseURL := strings.TrimSpace(mc.BaseURL)
		if baseURL == "" {
			baseURL = strings.TrimSpace(os.Getenv("ARK_BASE_URL"))
		}
		region := strings.TrimSpace(mc.Region)
		if region == "" {
			region = strings.TrimSpace(os.Getenv("ARK_REGION"))
		}

		if apiKey == "" && (accessKey == "" || secretKey == "") {
			return nil, ChatModelMeta{}, fmt.Errorf("ark chat model missing apiKey or accessKey/secretKey")
		}
		if modelName == "" {
			return nil, ChatModelMeta{}, fmt.Errorf("ark chat model missing model")
		}

		// 重试由对话层控制
		retryTimes := 0
		cm, err := arkModel.NewChatModel(ctx, &arkModel.ChatModelConfig{
			APIKey:      apiKey,
			AccessKey:   accessKey,
			SecretKey:   secretKey,
			Model:       modelName,
			BaseURL:     baseURL,
			Region:      region,
			Timeout:     &timeout,
			RetryTimes:  &retryTimes,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			return nil, ChatModelMeta{}, err
		}
		return cm, ChatModelMeta{Provider: "ark", Model: modelName}, nil

	default:
		return nil, ChatModelMeta{}, fmt.Errorf("unknown chat model provider: %s", provider)
	}
}
