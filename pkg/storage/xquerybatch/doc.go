// Package xquerybatch 将大量相互独立的只读查询分组到少量事务中执行。
//
// 查询列表按 chunkSize 切块，每块在一个只读事务中依次执行，块的调度与重试由 xbatch 完成，
// 重试作用于整个块事务。结果按输入顺序展开返回。
//
//	tx, _ := xquerybatch.NewSQLTransactor(db)
//	b, _ := xquerybatch.New[*sql.Tx, int](tx)
//	counts, err := b.ExecuteQueries(ctx, []xquerybatch.Query[*sql.Tx, int]{
//	    countArticles("qiita"),
//	    countArticles("zenn"),
//	}, 10)
//
// # 事务执行器
//
//   - [SQLTransactor]：database/sql，默认以 ReadOnly 选项开启事务，驱动由调用方注册
//   - [MongoTransactor]：MongoDB 会话事务，查询收到的事务句柄是会话 context
//
// # 条件查询
//
// [Batcher.ExecuteConditionalQueries] 在分块之前丢弃 Condition 为 false 的项，
// 被丢弃的查询不会到达数据库，结果与保留项一一对应。
package xquerybatch
