// Package xconf 提供统一的配置加载和解析功能，基于 koanf 实现。
//
// xconf 分两层：
//   - Config：文件/字节数据的加载、反序列化和热重载（koanf + fsnotify）
//   - Settings：xfeed 组件的类型化配置树，带默认值和 Validate
//
// # 支持的格式
//
//   - YAML（推荐）：.yaml, .yml
//   - JSON：.json
//
// # 典型用法
//
//	cfg, err := xconf.New("/etc/xfeed/config.yaml")
//	if err != nil {
//		return err
//	}
//	settings, err := xconf.LoadSettings(cfg)
//	if err != nil {
//		return err // 包含全部校验失败项
//	}
//
// # 时间字段
//
// time.Duration 字段接受 "10m"、"1s" 这样的字符串，由 koanf 默认的
// mapstructure DecodeHook 完成转换。
//
// # 配置监视
//
// Watch 监视配置文件所在目录，内置防抖，兼容编辑器的原子写入。
// 从字节数据创建的 Config 不支持 Reload 和 Watch。
package xconf
