// Package xloader 提供请求级的批量加载器。
//
// 同一个收集窗口内对 Load 的调用会合并为一次批量查询，结果按键记忆，
// 同一请求内重复的 Load 不会再次查询。Loader 绑定一个请求的 context，
// 不应跨请求共享；两个 Loader 实例之间不共享任何状态。
//
// # 状态机
//
//	collecting ──(窗口到期 / 达到 MaxBatch / Dispatch)──▶ dispatched ──▶ resolved ──▶ memoized
//
// 每个批次中的键已去重，BatchFunc 对每个唯一键只收到一次。
// 结果中缺失的键按默认值处理（[WithDefault]，默认零值），缺失行视为合法的否定回答。
//
// # 失败
//
//   - 批量查询出错：批次内所有 Thunk 以同一错误失败，这些键从记忆表移除，之后的 Load 会重新查询
//   - 批量查询 panic：恢复并转换为 [ErrFetchPanic]
//   - 请求 context 取消：待处理与新的 Load 以 context 错误失败
//
// 示例：
//
//	favs := xloader.New(ctx, func(ctx context.Context, ids []int64) (map[int64]bool, error) {
//	    return repo.FavoriteStates(ctx, userID, ids)
//	})
//	ok, err := favs.Load(ctx, articleID)
package xloader
