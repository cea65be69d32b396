package config

import (
	"log"
	"os"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type MainConfig struct {
	AppName  string `toml:"appName"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	ForceTLS bool   `toml:"forceTLS"`
}

type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

type LogConfig struct {
	LogPath string `toml:"logPath"`
	Level   string `toml:"level"`
}

type JwtConfig struct {
	Key         string `toml:"key"`
	ExpireHours int    `toml:"expireHours"`
	Issuer      string `toml:"issuer"`
}

type KafkaConfig struct {
	Brokers         []string `toml:"brokers"`
	ClientID        string   `toml:"clientID"`
	EventTopic      string   `toml:"eventTopic"`
	ConsumerGroupID string   `toml:"consumerGroupID"`
}

type RedisConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"poolSize"`
	MinIdleConns int    `toml:"minIdleConns"`
}

type AIChatModelConfig struct {
	Provider        string  `toml:"provider"`
	APIKey          string  `toml:"apiKey"`
	AccessKey       string  `toml:"accessKey"`
	SecretKey       string  `toml:"secretKey"`
	BaseURL         string  `toml:"baseURL"`
	Region          string  `toml:"region"`
	Model           string  `toml:"model"`
	Temperature     float32 `toml:"temperature"`
	MaxTokens       int     `toml:"maxTokens"`
	ByAzure         bool    `toml:"byAzure"`
	AzureAPIVersion string  `toml:"azureApiVersion"`
}

// DialogueConfig 对话编排的可调参数
type DialogueConfig struct {
	MaxToolRounds         int      `toml:"maxToolRounds"`
	LLMTimeoutSeconds     int      `toml:"llmTimeoutSeconds"`
	LLMRetries            int      `toml:"llmRetries"`
	TranscriptWindow      int      `toml:"transcriptWindow"`
	ComplexityThreshold   int      `toml:"complexityThreshold"`
	LongMessageChars      int      `toml:"longMessageChars"`
	ComplexKeywords       []string `toml:"complexKeywords"`
	ComplexKeywordWeight  int      `toml:"complexKeywordWeight"`
	FallbackResponse      string   `toml:"fallbackResponse"`
	EscalationAcknowledge string   `toml:"escalationAcknowledge"`
}

type AIConfig struct {
	ChatModel AIChatModelConfig `toml:"chatModel"`
	FastModel AIChatModelConfig `toml:"fastModel"`
	Dialogue  DialogueConfig    `toml:"dialogue"`
}

// ConfidenceConfig 置信度加权项，每项同时是该信号的上限
type ConfidenceConfig struct {
	Base             float64 `toml:"base"`
	KnownCustomer    float64 `toml:"knownCustomer"`
	TierSilver       float64 `toml:"tierSilver"`
	TierGold         float64 `toml:"tierGold"`
	TierPlatinum     float64 `toml:"tierPlatinum"`
	KnowledgeOverlap float64 `toml:"knowledgeOverlap"`
	DetailedReply    float64 `toml:"detailedReply"`
	DetailedChars    int     `toml:"detailedChars"`
	ToolSuccess      float64 `toml:"toolSuccess"`
	DataToolSuccess  float64 `toml:"dataToolSuccess"`
	Continuity       float64 `toml:"continuity"`
	Threshold        float64 `toml:"threshold"`
}

// EscalationConfig 升级规则的词表，留空则使用内置词表
type EscalationConfig struct {
	HumanPhrases       []string `toml:"humanPhrases"`
	FrustrationWords   []string `toml:"frustrationWords"`
	UnresolvedPhrases  []string `toml:"unresolvedPhrases"`
	RepeatPhrases      []string `toml:"repeatPhrases"`
	UrgencyWords       []string `toml:"urgencyWords"`
	NotifyOnEscalation bool     `toml:"notifyOnEscalation"`
}

// ContextConfig 上下文聚合的规模与会员等级阈值
type ContextConfig struct {
	FAQLimit           int     `toml:"faqLimit"`
	CatalogLimit       int     `toml:"catalogLimit"`
	CollectionLimit    int     `toml:"collectionLimit"`
	RecentOrderLimit   int     `toml:"recentOrderLimit"`
	PlatinumSpend      float64 `toml:"platinumSpend"`
	PlatinumOrders     int     `toml:"platinumOrders"`
	GoldSpend          float64 `toml:"goldSpend"`
	GoldOrders         int     `toml:"goldOrders"`
	SilverSpend        float64 `toml:"silverSpend"`
	SilverOrders       int     `toml:"silverOrders"`
	FetchTimeoutMillis int     `toml:"fetchTimeoutMillis"`
}

type HelpdeskConfig struct {
	WebhookSecret     string   `toml:"webhookSecret"`
	SignatureHeader   string   `toml:"signatureHeader"`
	APIBaseURL        string   `toml:"apiBaseURL"`
	APIToken          string   `toml:"apiToken"`
	InboxID           int64    `toml:"inboxID"`
	DedupTTLSeconds   int      `toml:"dedupTTLSeconds"`
	SurveyDelayHours  int      `toml:"surveyDelayHours"`
	SurveyCron        string   `toml:"surveyCron"`
	OrderFollowups    []string `toml:"orderFollowups"`
	ReturnFollowups   []string `toml:"returnFollowups"`
	RequestTimeoutSec int      `toml:"requestTimeoutSeconds"`
}

type MCPConfig struct {
	Enabled bool   `toml:"enabled"`
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type Config struct {
	MainConfig       `toml:"mainConfig"`
	MysqlConfig      `toml:"mysqlConfig"`
	JwtConfig        `toml:"jwtConfig"`
	KafkaConfig      `toml:"kafkaConfig"`
	AIConfig         `toml:"aiConfig"`
	LogConfig        `toml:"logConfig"`
	RedisConfig      `toml:"redisConfig"`
	ConfidenceConfig `toml:"confidenceConfig"`
	EscalationConfig `toml:"escalationConfig"`
	ContextConfig    `toml:"contextConfig"`
	HelpdeskConfig   `toml:"helpdeskConfig"`
	MCPConfig        `toml:"mcpConfig"`
}

const defaultConfigPath = "configs/config_local.toml"

// MaxToolRoundsCap 单回合工具轮次的硬上限
const MaxToolRoundsCap = 3

var (
	config *Config
	once   sync.Once
)

// Load 读取 .env 与 toml 配置，缺失项使用默认值
func Load(path string) (*Config, error) {
	// .env 可选，不存在时忽略
	_ = godotenv.Load()

	conf := new(Config)
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath
	}
	var loadErr error
	if _, err := toml.DecodeFile(path, conf); err != nil {
		loadErr = err
	}
	applyEnv(conf)
	ApplyDefaults(conf)
	return conf, loadErr
}

// GetConfig 进程级单例，路径可由 STORESUPPORT_CONFIG 覆盖
func GetConfig() *Config {
	once.Do(func() {
		conf, err := Load(os.Getenv("STORESUPPORT_CONFIG"))
		if err != nil {
			log.Printf("load config failed: %v, falling back to defaults", err)
		}
		config = conf
	})
	return config
}

func applyEnv(conf *Config) {
	if v := strings.TrimSpace(os.Getenv("HELPDESK_WEBHOOK_SECRET")); v != "" {
		conf.HelpdeskConfig.WebhookSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("HELPDESK_API_TOKEN")); v != "" {
		conf.HelpdeskConfig.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv("JWT_KEY")); v != "" {
		conf.JwtConfig.Key = v
	}
	if v := strings.TrimSpace(os.Getenv("MYSQL_PASSWORD")); v != "" {
		conf.MysqlConfig.Password = v
	}
}

// ApplyDefaults 补全默认值，测试构造配置时也会调用
func ApplyDefaults(conf *Config) {
	if conf.MainConfig.AppName == "" {
		conf.MainConfig.AppName = "StoreSupport"
	}
	if conf.MainConfig.Port == 0 {
		conf.MainConfig.Port = 8080
	}

	d := &conf.AIConfig.Dialogue
	if d.MaxToolRounds <= 0 {
		d.MaxToolRounds = 1
	}
	if d.MaxToolRounds > MaxToolRoundsCap {
		d.MaxToolRounds = MaxToolRoundsCap
	}
	if d.LLMTimeoutSeconds <= 0 {
		d.LLMTimeoutSeconds = 8
	}
	if d.LLMRetries < 0 {
		d.LLMRetries = 0
	}
	if d.LLMRetries > 1 {
		d.LLMRetries = 1
	}
	if d.TranscriptWindow <= 0 {
		d.TranscriptWindow = 10
	}
	if d.ComplexityThreshold <= 0 {
		d.ComplexityThreshold = 2
	}
	if d.LongMessageChars <= 0 {
		d.LongMessageChars = 240
	}
	if d.ComplexKeywordWeight <= 0 {
		d.ComplexKeywordWeight = 2
	}
	if len(d.ComplexKeywords) == 0 {
		d.ComplexKeywords = []string{
			"complaint", "refund", "damaged", "broken", "wrong item", "missing",
			"charged twice", "cancel", "dispute", "urgent", "angry", "unacceptable",
		}
	}
	if d.FallbackResponse == "" {
		d.FallbackResponse = "I'm sorry, I'm having trouble answering right now. A member of our team will follow up with you shortly."
	}
	if d.EscalationAcknowledge == "" {
		d.EscalationAcknowledge = "I've passed this conversation to our support team and someone will be with you shortly."
	}

	c := &conf.ConfidenceConfig
	if c.Base == 0 {
		c.Base = 0.5
	}
	if c.KnownCustomer == 0 {
		c.KnownCustomer = 0.15
	}
	if c.TierSilver == 0 {
		c.TierSilver = 0.03
	}
	if c.TierGold == 0 {
		c.TierGold = 0.06
	}
	if c.TierPlatinum == 0 {
		c.TierPlatinum = 0.1
	}
	if c.KnowledgeOverlap == 0 {
		c.KnowledgeOverlap = 0.15
	}
	if c.DetailedReply == 0 {
		c.DetailedReply = 0.1
	}
	if c.DetailedChars == 0 {
		c.DetailedChars = 160
	}
	if c.ToolSuccess == 0 {
		c.ToolSuccess = 0.1
	}
	if c.DataToolSuccess == 0 {
		c.DataToolSuccess = 0.2
	}
	if c.Continuity == 0 {
		c.Continuity = 0.05
	}
	if c.Threshold == 0 {
		c.Threshold = 0.5
	}

	x := &conf.ContextConfig
	if x.FAQLimit <= 0 {
		x.FAQLimit = 5
	}
	if x.CatalogLimit <= 0 {
		x.CatalogLimit = 20
	}
	if x.CollectionLimit <= 0 {
		x.CollectionLimit = 10
	}
	if x.RecentOrderLimit <= 0 {
		x.RecentOrderLimit = 10
	}
	if x.PlatinumSpend == 0 {
		x.PlatinumSpend = 5000
	}
	if x.PlatinumOrders == 0 {
		x.PlatinumOrders = 20
	}
	if x.GoldSpend == 0 {
		x.GoldSpend = 2000
	}
	if x.GoldOrders == 0 {
		x.GoldOrders = 10
	}
	if x.SilverSpend == 0 {
		x.SilverSpend = 500
	}
	if x.SilverOrders == 0 {
		x.SilverOrders = 3
	}
	if x.FetchTimeoutMillis <= 0 {
		x.FetchTimeoutMillis = 3000
	}

	h := &conf.HelpdeskConfig
	if h.SignatureHeader == "" {
		h.SignatureHeader = "X-Helpdesk-Signature"
	}
	if h.DedupTTLSeconds <= 0 {
		h.DedupTTLSeconds = 600
	}
	if h.SurveyDelayHours <= 0 {
		h.SurveyDelayHours = 24
	}
	if h.SurveyCron == "" {
		h.SurveyCron = "*/5 * * * *"
	}
	if len(h.OrderFollowups) == 0 {
		h.OrderFollowups = []string{"order", "tracking", "delivery", "shipping"}
	}
	if len(h.ReturnFollowups) == 0 {
		h.ReturnFollowups = []string{"return", "refund", "exchange"}
	}
	if h.RequestTimeoutSec <= 0 {
		h.RequestTimeoutSec = 10
	}

	if conf.KafkaConfig.EventTopic == "" {
		conf.KafkaConfig.EventTopic = "storesupport.helpdesk.events"
	}
	if conf.KafkaConfig.ConsumerGroupID == "" {
		conf.KafkaConfig.ConsumerGroupID = "storesupport-side-effects"
	}

	if conf.MCPConfig.Name == "" {
		conf.MCPConfig.Name = "storesupport-tools"
	}
	if conf.MCPConfig.Version == "" {
		conf.MCPConfig.Version = "1.0.0"
	}
}
