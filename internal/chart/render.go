package chart

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/color"

	"NewsPulse/internal/model"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	colorPositive = color.RGBA{R: 0x84, G: 0xC1, B: 0xFF, A: 0xFF}
	colorNeutral  = color.RGBA{R: 0xFF, G: 0xE6, B: 0x6F, A: 0xFF}
	colorNegative = color.RGBA{R: 0xFF, G: 0x51, B: 0x51, A: 0xFF}
	colorStar     = color.RGBA{R: 0xCA, G: 0x8E, B: 0xFF, A: 0xFF}
)

const barWidth = vg.Length(40)

// DistributionPNG 左：情绪分布，右：星级分布
func DistributionPNG(counts model.Counts) ([]byte, error) {
	emotion, err := emotionPlot(counts.Emotions)
	if err != nil {
		return nil, err
	}
	stars, err := starPlot(counts.Stars)
	if err != nil {
		return nil, err
	}

	img := vgimg.New(10*vg.Inch, 5*vg.Inch)
	dc := draw.New(img)
	plots := [][]*plot.Plot{{emotion, stars}}
	canvases := plot.Align(plots, draw.Tiles{Rows: 1, Cols: 2}, dc)
	plots[0][0].Draw(canvases[0][0])
	plots[0][1].Draw(canvases[0][1])

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("输出PNG失败: %w", err)
	}
	return buf.Bytes(), nil
}

func emotionPlot(e model.EmotionCounts) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Emotion Distribution"
	p.X.Label.Text = "Emotion Type"
	p.Y.Label.Text = "Count"

	bars := []struct {
		value float64
		color color.Color
	}{
		{float64(e.Positive), colorPositive},
		{float64(e.Neutral), colorNeutral},
		{float64(e.Negative), colorNegative},
	}
	for i, b := range bars {
		bar, err := plotter.NewBarChart(plotter.Values{b.value}, barWidth)
		if err != nil {
			return nil, fmt.Errorf("创建情绪柱状图失败: %w", err)
		}
		bar.XMin = float64(i)
		bar.Color = b.color
		bar.LineStyle.Width = 0
		p.Add(bar)
	}
	p.NominalX("positive", "neutral", "negative")
	p.Y.Min = 0
	return p, nil
}

func starPlot(stars map[int]int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Star Rating Distribution"
	p.X.Label.Text = "Star Rating"
	p.Y.Label.Text = "Count"

	values := make(plotter.Values, 5)
	for star := 1; star <= 5; star++ {
		values[star-1] = float64(stars[star])
	}
	bar, err := plotter.NewBarChart(values, barWidth)
	if err != nil {
		return nil, fmt.Errorf("创建星级柱状图失败: %w", err)
	}
	bar.Color = colorStar
	bar.LineStyle.Width = 0
	p.Add(bar)
	p.NominalX("1", "2", "3", "4", "5")
	p.Y.Min = 0
	return p, nil
}

// TimeseriesPNG 每日平均情绪分数折线
func TimeseriesPNG(series []model.DailySentiment) ([]byte, error) {
	if len(series) == 0 {
		return nil, errors.New("时间序列为空")
	}
	p := plot.New()
	p.Title.Text = "Daily Mean Sentiment"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Mean Sentiment"
	p.X.Tick.Marker = plot.TimeTicks{Format: model.DateLayout}
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(series))
	for i, d := range series {
		xys[i].X = float64(d.Day.Unix())
		xys[i].Y = d.Mean
	}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, fmt.Errorf("创建折线失败: %w", err)
	}
	line.Color = colorPositive
	points.GlyphStyle.Color = colorNegative
	p.Add(line, points)

	writer, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("输出PNG失败: %w", err)
	}
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("输出PNG失败: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode 标准 base64，前端直接拼 data:image/png;base64,
func Encode(png []byte) string {
	return base64.StdEncoding.EncodeToString(png)
}

// RenderDistribution 直接返回 base64 PNG
func RenderDistribution(counts model.Counts) (string, error) {
	png, err := DistributionPNG(counts)
	if err != nil {
		return "", err
	}
	return Encode(png), nil
}

func RenderTimeseries(series []model.DailySentiment) (string, error) {
	png, err := TimeseriesPNG(series)
	if err != nil {
		return "", err
	}
	return Encode(png), nil
}
