package model

type Coin string
type Network string

var (
	ZEC Coin = "ZEC"
)

var (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Regtest Network = "regtest"
)
