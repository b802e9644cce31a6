package config

type WorkerKeyStruct struct {
	PaperRefreshQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PaperRefreshQueue: "paper_refresh_queue",
}
