package config

type WorkerKeyStruct struct {
	PersistProctorEventsQueue string
	PersistQuestionOrderQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProctorEventsQueue: "persist_proctor_events_queue",
	PersistQuestionOrderQueue: "persist_question_order_queue",
}
