package orders

const (
	TopicOrderPlaced = "order.placed"
	TopicStockLow    = "inventory.stock.low"
)

// Partition key = order number, so every event of one order keeps its order.
func PartitionKey(orderNumber string) []byte { return []byte(orderNumber) }

// StockKeyPartition keeps events about one stock entry on one partition.
func StockKeyPartition(k StockKey) []byte {
	return []byte(itoa(int(k.ProductID)) + ":" + itoa(int(k.SizeID)))
}
