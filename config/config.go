package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Redis         RedisConfig         `yaml:"redis"`
	ComplianceBox ComplianceBoxConfig `yaml:"compliancebox"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	AlertsTopicName     string `yaml:"alerts_topic_name"`
	SweepsTopicName     string `yaml:"sweeps_topic_name"`
	AlertsConsumerGroup string `yaml:"alerts_consumer_group"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ComplianceBoxConfig struct {
	HTTPAddr         string `yaml:"http_addr"`
	ReportTTLSeconds int    `yaml:"report_ttl_seconds"`

	// Интервалы свипов воркера, по движку.
	WorkerDeliveryIntervalSeconds  int `yaml:"worker_delivery_interval_seconds"`
	WorkerClearanceIntervalSeconds int `yaml:"worker_clearance_interval_seconds"`
	WorkerFTZIntervalSeconds       int `yaml:"worker_ftz_interval_seconds"`
	WorkerFilingsIntervalSeconds   int `yaml:"worker_filings_interval_seconds"`

	WorkerBatchSize              int `yaml:"worker_batch_size"`
	WorkerLeaseSeconds           int `yaml:"worker_lease_seconds"`
	WorkerRateLimitPerMinute     int `yaml:"worker_rate_limit_per_minute"`

	// Паузы переигрывания доставки. Нули означают прод-дефолты:
	// backoff 5/15/30 минут, hold 15 минут, exhausted 24 часа.
	WorkerBackoff1Seconds  int `yaml:"worker_backoff_1_seconds"`
	WorkerBackoff2Seconds  int `yaml:"worker_backoff_2_seconds"`
	WorkerBackoff3Seconds  int `yaml:"worker_backoff_3_seconds"`
	WorkerHoldSeconds      int `yaml:"worker_hold_seconds"`
	WorkerExhaustedSeconds int `yaml:"worker_exhausted_seconds"`

	WorkerHTTPAddr string `yaml:"worker_http_addr"`

	EDIGatewayBaseURL string `yaml:"edi_gateway_base_url"`
	EDIGatewayMode    string `yaml:"edi_gateway_mode"` // "van" | "fake"
	EDIGatewayAPIKey  string `yaml:"edi_gateway_api_key"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
