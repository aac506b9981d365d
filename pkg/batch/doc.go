// Package batch 提供批量处理相关的子包。
//
// 子包列表：
//   - xbatch: 分块、重试、并发的通用批处理器
//   - xloader: 请求级批量加载器，合并同一窗口内的单键请求
package batch
