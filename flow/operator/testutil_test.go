package operator

import (
	ftxn "reifydb.io/core/flow/txn"
	"reifydb.io/core/frame"
	"reifydb.io/core/kv/memkv"
	"reifydb.io/core/mvcc"
	"reifydb.io/core/value"
)

func newTx() *ftxn.FlowTransaction {
	e := mvcc.NewEngine(memkv.New(), nil, nil)
	return ftxn.New(ftxn.NewParentTxn(e.Begin()))
}

func col(name string, typ value.Type, vals ...value.Value) frame.Column {
	c := frame.Column{Name: name, Type: typ, Data: frame.Undefined(typ, 0)}
	container := c.AsContainer()
	for _, v := range vals {
		container.PushValue(v)
	}
	return c
}
