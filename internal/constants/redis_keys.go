package constants

// Redis key 统一格式: smarthire:{模块}:{实体}[:{id}]
const (
	keyPrefix = "smarthire"

	// KeyResumeResult 同步解析结果缓存 (STRING, JSON)
	// smarthire:parse:result:{fileMD5}:{jdMD5}
	KeyResumeResult = keyPrefix + ":parse:result:%s:%s"

	// KeySubmissionDedup 提交去重键到 submission_uuid 的映射 (STRING)
	// smarthire:submission:dedup:{dedupKey}
	KeySubmissionDedup = keyPrefix + ":submission:dedup:%s"

	// KeySubmissionDedupSet 所有已登记的去重键 (SET)，便于排查和批量清理
	KeySubmissionDedupSet = keyPrefix + ":submission:dedup_set"
)
