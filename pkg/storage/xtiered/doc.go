// Package xtiered 提供文章列表查询的分层缓存路由。
//
// 每个查询按参数归入一个缓存层，各层共享同一个后端但使用独立的命名空间与 TTL：
//
//   - L1 [TierPublic]：无用户、无搜索词的公共列表，命名空间 articles:public，TTL 10 分钟
//   - L2 [TierUser]：带用户 ID 的列表，命名空间 articles:user，TTL 1 分钟，
//     键带 u/{userID} 前缀（userID 经查询串转义），可按用户整体失效
//   - L3 [TierSearch]：带搜索词的列表，命名空间 articles:search，TTL 5 分钟
//   - [TierBypass]：需要附带用户数据（收藏、已读）的查询，每次都调用 fetcher
//
// 分层判定的优先级为 IncludeUserData > UserID > Search > 公共。
//
//	r, _ := xtiered.NewRouter(backend)
//	list, err := xtiered.GetArticles(ctx, r, params, func(ctx context.Context) ([]Article, error) {
//	    return repo.List(ctx, params)
//	})
//
// # 失效
//
// 文章变更时调用 [Router.OnArticleChanged]，清除 L1、L3 与全部 L2；
// 用户收藏或已读状态变更时调用 [Router.OnUserStateChanged]，只清除该用户的 L2。
package xtiered
