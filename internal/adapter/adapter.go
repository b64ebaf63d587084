package adapter

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"NewsPulse/internal/config"
	"NewsPulse/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// SourceRegistry 按配置创建好的来源适配器实例
type SourceRegistry struct {
	cfg    *config.Config
	logger *logrus.Logger
	// 存储来源名称→适配器实例的映射
	adapters map[string]interfaces.SourceAdapter
}

func NewSourceRegistry(cfg *config.Config, logger *logrus.Logger) *SourceRegistry {
	r := &SourceRegistry{
		cfg:      cfg,
		logger:   logger,
		adapters: make(map[string]interfaces.SourceAdapter),
	}
	r.initAdaptersFromFactories()
	return r
}

// NewStaticRegistry 直接使用给定实例（测试与命令行工具用）
func NewStaticRegistry(logger *logrus.Logger, adapters ...interfaces.SourceAdapter) *SourceRegistry {
	r := &SourceRegistry{logger: logger, adapters: make(map[string]interfaces.SourceAdapter)}
	for _, a := range adapters {
		r.adapters[a.GetName()] = a
	}
	return r
}

// initAdaptersFromFactories 遍历配置中的来源，匹配工厂函数创建实例
func (r *SourceRegistry) initAdaptersFromFactories() {
	r.logger.WithField("factory_sources", ListFactories()).Info("已注册的来源工厂函数")

	for name, sourceCfg := range r.cfg.Sources {
		factory, ok := GetFactory(name)
		if !ok {
			r.logger.WithField("source", name).Error("未找到对应的工厂函数（init未注册？）")
			continue
		}

		sourceCfg := sourceCfg
		adapterIns := factory(&sourceCfg, r.logger)
		if adapterIns == nil {
			r.logger.WithField("source", name).Error("工厂函数返回nil适配器实例")
			continue
		}
		if adapterIns.GetName() != name {
			r.logger.WithFields(logrus.Fields{
				"config_source":  name,
				"adapter_source": adapterIns.GetName(),
			}).Error("适配器名称与配置不匹配")
			continue
		}

		r.adapters[name] = adapterIns
	}
	r.logger.WithField("sources", r.ListRegistered()).Info("来源适配器初始化完成")
}

// ListRegistered 已初始化的来源（有序）
func (r *SourceRegistry) ListRegistered() []string {
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// GetAdapter 获取适配器实例
func (r *SourceRegistry) GetAdapter(name string) (interfaces.SourceAdapter, error) {
	adapterIns, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("来源%s未初始化适配器实例（已初始化：%v）", name, r.ListRegistered())
	}
	return adapterIns, nil
}

// Close 释放持有资源的适配器（如无头浏览器）
func (r *SourceRegistry) Close() error {
	var errs []error
	for name, a := range r.adapters {
		if c, ok := a.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("关闭%s失败: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
