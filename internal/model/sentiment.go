package model

import "time"

// Emotion 三态情绪：-1 负面 / 0 中性 / 1 正面
type Emotion int

const (
	EmotionNegative Emotion = -1
	EmotionNeutral  Emotion = 0
	EmotionPositive Emotion = 1
)

// EmotionFromStar 星级映射情绪：1-2 负面，3 中性，4-5 正面
func EmotionFromStar(star int) Emotion {
	switch {
	case star <= 2:
		return EmotionNegative
	case star == 3:
		return EmotionNeutral
	default:
		return EmotionPositive
	}
}

func (e Emotion) Label() string {
	switch e {
	case EmotionNegative:
		return "negative"
	case EmotionNeutral:
		return "neutral"
	default:
		return "positive"
	}
}

// ParseEmotion 支持 positive/neutral/negative 与 1/0/-1
func ParseEmotion(s string) (Emotion, bool) {
	switch s {
	case "positive", "1":
		return EmotionPositive, true
	case "neutral", "0":
		return EmotionNeutral, true
	case "negative", "-1":
		return EmotionNegative, true
	}
	return 0, false
}

// SentimentAnnotation 情绪分析结果，表名随 topic 变化
type SentimentAnnotation struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	NewsID    int64     `gorm:"column:news_id;not null"`
	Sentiment float64   `gorm:"column:sentiment;not null"` // 置信度 0..1
	Star      int       `gorm:"column:star;not null"`      // 1..5
	Emotion   Emotion   `gorm:"column:emotion;not null"`   // -1/0/1
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// AnnotatedRef 带来源实例的情绪结果
type AnnotatedRef struct {
	Ref       NewsRef
	Sentiment float64
	Star      int
	Emotion   Emotion
}

// EmotionCounts 情绪分布
type EmotionCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Counts 单次查询的统计结果
type Counts struct {
	Stars    map[int]int   `json:"star_counts"`
	Emotions EmotionCounts `json:"emotion_counts"`
}

// Total 计入统计的条数
func (c Counts) Total() int {
	return c.Emotions.Positive + c.Emotions.Neutral + c.Emotions.Negative
}

// DailySentiment 单日平均情绪分数
type DailySentiment struct {
	Day   time.Time `json:"day"`
	Mean  float64   `json:"mean"`
	Count int       `json:"count"`
}
