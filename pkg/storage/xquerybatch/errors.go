package xquerybatch

import "errors"

var (
	// ErrNilDB *sql.DB 为空
	ErrNilDB = errors.New("xquerybatch: nil db")
	// ErrNilClient *mongo.Client 为空
	ErrNilClient = errors.New("xquerybatch: nil mongo client")
	// ErrNilTransactor 事务执行器为空
	ErrNilTransactor = errors.New("xquerybatch: nil transactor")
	// ErrNilQuery 查询函数为空
	ErrNilQuery = errors.New("xquerybatch: nil query")
)
