// Package feed 提供文章流业务相关的子包。
//
// 子包列表：
//   - xstate: 用户对文章的收藏/已读状态加载，随请求 context 传递
package feed
