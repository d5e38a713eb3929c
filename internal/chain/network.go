package chain

import "strings"

const (
	SepoliaChainID     = 11155111
	SepoliaName        = "Sepolia Testnet"
	SepoliaExplorerURL = "https://sepolia.etherscan.io"
)

// Network describes the chain clients should connect their wallets to.
type Network struct {
	ChainID     int64  `json:"chainId"`
	Name        string `json:"chainName"`
	RPCURL      string `json:"rpcUrl"`
	ExplorerURL string `json:"blockExplorer"`
}

// Configured reports whether an RPC endpoint is known.
func (n Network) Configured() bool {
	return n.RPCURL != ""
}

// TxURL links a transaction hash to the block explorer.
func (n Network) TxURL(hash string) string {
	if n.ExplorerURL == "" || hash == "" {
		return ""
	}
	return strings.TrimRight(n.ExplorerURL, "/") + "/tx/" + hash
}

// NewNetwork fills Sepolia defaults for anything left empty.
func NewNetwork(chainID int64, name, rpcURL, explorerURL string) Network {
	n := Network{ChainID: chainID, Name: name, RPCURL: rpcURL, ExplorerURL: explorerURL}
	if n.ChainID == 0 {
		n.ChainID = SepoliaChainID
	}
	if n.Name == "" {
		n.Name = SepoliaName
	}
	if n.ExplorerURL == "" {
		n.ExplorerURL = SepoliaExplorerURL
	}
	return n
}
