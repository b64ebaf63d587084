package service

import "errors"

var (
	// ErrUnknownCompany 抓取来源未注册
	ErrUnknownCompany = errors.New("unknown company")
	// ErrInvalidQuery 日期格式错误或区间颠倒
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNoDateInformation 匹配到的文章都没有可用日期，无法画时间序列
	ErrNoDateInformation = errors.New("no date information")
)
