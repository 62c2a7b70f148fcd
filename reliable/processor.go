package reliable

// Processor は受信イベントの適用・dedup・ack発火を編成します。
//
// ack対象イベントの状態遷移:
//
//	RECEIVED → DUPLICATE: ackのみ
//	RECEIVED → NEW:       apply → mark-processed → ack
//
// どちらの分岐も終端で、受信側に中間状態は残りません。
type Processor[T any] struct {
	validator AckValidator[T]
	processed *ProcessedEvents[T]
}

// NewProcessor は新しいProcessorを生成します。
func NewProcessor[T any](validator AckValidator[T], processed *ProcessedEvents[T]) *Processor[T] {
	return &Processor[T]{
		validator: validator,
		processed: processed,
	}
}

// ProcessInput は受信イベントを処理します。
// ack不要なイベントはそのまま適用し、onAckは呼ばれません。
// ack対象イベントでは、applyが失敗してもonAckは必ず一度だけ
// 発火します。ackを返さないとピアが永遠に再送し続けるためです。
// 重複配送されたイベントは再適用せず、ackのみ返します。
func (p *Processor[T]) ProcessInput(ev T, apply func(T) error, onAck func(T)) error {
	if !p.validator.IsAckRequired(ev) {
		return apply(ev)
	}

	defer onAck(ev)

	if p.processed.AlreadyProcessed(ev) {
		return nil
	}
	if err := apply(ev); err != nil {
		return err
	}
	p.processed.MarkProcessed(ev)
	return nil
}
