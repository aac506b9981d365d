// Package xstate 加载当前用户对文章的收藏与已读状态。
//
// 每个请求创建一组 [Loaders]（收藏、已读各一个 xloader），通过 [WithLoaders] 放入请求 context，
// 列表渲染时对每篇文章调用 [ArticleState]，同一窗口内的调用合并为每类状态一次查询。
//
//	loaders, err := xstate.FromRequest(ctx, repo)
//	ctx = xstate.WithLoaders(ctx, loaders)
//	states, err := xstate.ArticleStates(ctx, ids)
//
// 匿名用户（userID 为空）的所有文章都返回零值状态，不访问 [Source]。
package xstate
