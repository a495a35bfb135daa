package sqlstore

var (
	_ VoteRecordWriter = (*VoteStore)(nil)
)
