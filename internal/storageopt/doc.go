// Package storageopt 提供存储层组件共享的内部工具：
// 原子计数器和慢查询检测器。
package storageopt
