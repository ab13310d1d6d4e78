package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
)

type Config struct {
	Env      string `yaml:"env" env-default:"local"`
	Telegram struct {
		ApiKey  string `yaml:"api_key" env-default:""`
		AdminId int64  `yaml:"admin_id" env-default:"0"`
		BotName string `yaml:"bot_name" env-default:"OrderPulseBot"`
		Enabled bool   `yaml:"enabled" env-default:"false"`
	} `yaml:"telegram"`
	OpenAI struct {
		ApiKey         string `yaml:"api_key" env-default:""`
		Model          string `yaml:"model" env-default:"gpt-4o-mini"`
		TimeoutSeconds int    `yaml:"timeout_seconds" env-default:"20"`
	} `yaml:"openai"`
	Analyzer struct {
		RequestsPerWindow int     `yaml:"requests_per_window" env-default:"15"`
		WindowSeconds     int     `yaml:"window_seconds" env-default:"60"`
		FailureThreshold  int     `yaml:"failure_threshold" env-default:"5"`
		CooldownSeconds   int     `yaml:"cooldown_seconds" env-default:"30"`
		HalfOpenProbes    int     `yaml:"half_open_probes" env-default:"3"`
		SuccessToClose    int     `yaml:"success_to_close" env-default:"2"`
		OrderConfidence   float64 `yaml:"order_confidence" env-default:"0.5"`
		ContextMessages   int     `yaml:"context_messages" env-default:"5"`
	} `yaml:"analyzer"`
	Sweep struct {
		Enabled         bool `yaml:"enabled" env-default:"true"`
		IntervalMinutes int  `yaml:"interval_minutes" env-default:"10"`
		BatchSize       int  `yaml:"batch_size" env-default:"20"`
		MaxAttempts     int  `yaml:"max_attempts" env-default:"3"`
	} `yaml:"sweep"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:"admin"`
		Password string `yaml:"password" env-default:"pass"`
		Database string `yaml:"database" env-default:""`
	} `yaml:"mongo"`
	Rabbit struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		URL     string `yaml:"url" env-default:""`
		Queue   string `yaml:"queue" env-default:"orderpulse_events"`
	} `yaml:"rabbit"`
	WhatsApp struct {
		AccessToken   string `yaml:"access_token" env-default:""`
		VerifyToken   string `yaml:"verify_token" env-default:""`
		AppSecret     string `yaml:"app_secret" env-default:""`
		PhoneNumberID string `yaml:"phone_number_id" env-default:""`
		Tenant        string `yaml:"tenant" env-default:""`
	} `yaml:"whatsapp"`
	Instagram struct {
		AccessToken string `yaml:"access_token" env-default:""`
		VerifyToken string `yaml:"verify_token" env-default:""`
		AppSecret   string `yaml:"app_secret" env-default:""`
		Tenant      string `yaml:"tenant" env-default:""`
	} `yaml:"instagram"`
	Listen struct {
		BindIP string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port   string `yaml:"port" env-default:"9100"`
		ApiKey string `yaml:"key" env-default:""`
	} `yaml:"listen"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("%s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
