package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docvault/internal/audit"
	"docvault/internal/domain"
	"docvault/internal/service/s3"
)

// CascadeService — каскадные алгоритмы над деревом, хранящимся плоскими
// строками id + parent-id. Все «рекурсивные» обходы выполняются слоёными
// запросами к хранилищу, а не объектным графом в памяти. Каскад не
// оборачивается транзакцией: каждая операция — серия независимых
// обращений к хранилищу, частично прерываемая.
type CascadeService struct {
	folders FolderStore
	files   FileStore
	trash   TrashStore
	deps    DependentStore
	blobs   s3.Storage
	audit   audit.Logger
}

func NewCascadeService(
	folders FolderStore,
	files FileStore,
	trash TrashStore,
	deps DependentStore,
	blobs s3.Storage,
	auditLog audit.Logger,
) *CascadeService {
	return &CascadeService{
		folders: folders,
		files:   files,
		trash:   trash,
		deps:    deps,
		blobs:   blobs,
		audit:   auditLog,
	}
}

// newBlobPath генерирует псевдослучайный путь блоба в пределах
// измерения и папки. Пути никогда не переиспользуются.
func newBlobPath(dimensionID int64, folderID *int64) string {
	folderPart := "root"
	if folderID != nil {
		folderPart = strconv.FormatInt(*folderID, 10)
	}
	return fmt.Sprintf("dim_%d/folder_%s/%s", dimensionID, folderPart, uuid.NewString())
}

// collectSubtree возвращает папки поддерева в порядке обхода в ширину
// (корень первым) и файлы каждой папки. Снимок фиксируется до любых
// изменений, чтобы последующие шаги работали по замороженному набору.
func (s *CascadeService) collectSubtree(ctx context.Context, root *domain.Folder) ([]domain.Folder, map[int64][]domain.File, error) {
	folders := []domain.Folder{*root}
	filesByFolder := make(map[int64][]domain.File)

	for i := 0; i < len(folders); i++ {
		cur := folders[i]

		files, err := s.files.ListByFolder(ctx, cur.DimensionID, &cur.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list files of folder %d: %w", cur.ID, err)
		}
		filesByFolder[cur.ID] = files

		children, err := s.folders.ListByParent(ctx, cur.DimensionID, &cur.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list children of folder %d: %w", cur.ID, err)
		}
		folders = append(folders, children...)
	}

	return folders, filesByFolder, nil
}

// CopySubtree копирует поддерево в целевую папку и возвращает id нового
// корня. Набор исходных папок и файлов фиксируется снимком до первой
// вставки, клоны создаются по снимку сверху вниз. Частично созданное
// дерево при ошибке не откатывается.
func (s *CascadeService) CopySubtree(ctx context.Context, folderID int64, targetParentID *int64, actor string) (int64, error) {
	src, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return 0, err
	}

	if targetParentID != nil {
		target, err := s.folders.GetByID(ctx, *targetParentID)
		if err != nil {
			return 0, fmt.Errorf("target folder: %w", err)
		}
		if target.DimensionID != src.DimensionID {
			return 0, fmt.Errorf("cross-dimension copy: %w", domain.ErrInvalidInput)
		}
	}

	// Снимок поддерева фиксируется до первой вставки. Копирование внутрь
	// собственного поддерева допустимо, и живой обход обнаруживал бы
	// собственные свежесозданные клоны, не завершаясь.
	folders, filesByFolder, err := s.collectSubtree(ctx, src)
	if err != nil {
		return 0, err
	}

	newRootID, err := s.copyFromSnapshot(ctx, folders, filesByFolder, targetParentID)
	if err != nil {
		return 0, err
	}

	s.audit.Log(ctx, audit.Event{
		Action:      "copy",
		EntityType:  "folder",
		EntityID:    strconv.FormatInt(folderID, 10),
		Status:      audit.StatusSuccess,
		Description: fmt.Sprintf("copied subtree as folder %d", newRootID),
		ActorID:     actor,
	})

	return newRootID, nil
}

// copyFromSnapshot клонирует замороженный набор папок в порядке обхода в
// ширину: родитель клонируется раньше потомков, поэтому к моменту вставки
// дочерней папки id клона родителя уже известен. Корень снимка получает
// суффикс " (copy)".
func (s *CascadeService) copyFromSnapshot(ctx context.Context, folders []domain.Folder, filesByFolder map[int64][]domain.File, targetParentID *int64) (int64, error) {
	cloneIDs := make(map[int64]int64, len(folders))
	var newRootID int64

	for i := range folders {
		f := folders[i]

		name := f.Name
		parentID := targetParentID
		if i == 0 {
			name = f.Name + " (copy)"
		} else {
			parent := cloneIDs[*f.ParentID]
			parentID = &parent
		}

		clone := &domain.Folder{
			Name:        name,
			DimensionID: f.DimensionID,
			ParentID:    parentID,
			Status:      f.Status,
		}
		if err := s.folders.Insert(ctx, clone); err != nil {
			return 0, fmt.Errorf("failed to clone folder %d: %w", f.ID, err)
		}
		cloneIDs[f.ID] = clone.ID
		if i == 0 {
			newRootID = clone.ID
		}

		// Файлы одной папки клонируются параллельно, без ограничения ширины
		g, gctx := errgroup.WithContext(ctx)
		for _, file := range filesByFolder[f.ID] {
			file := file
			g.Go(func() error {
				dstPath := newBlobPath(file.DimensionID, &clone.ID)
				// У копии всегда собственный блоб: содержимое дублируется,
				// чтобы окончательное удаление оригинала не задело копию
				url, err := s.blobs.CopyObject(gctx, file.BlobPath, dstPath)
				if err != nil {
					return fmt.Errorf("failed to copy blob for file %s: %w", file.ID, err)
				}

				fileClone := &domain.File{
					Name:        file.Name,
					BlobPath:    dstPath,
					SizeBytes:   file.SizeBytes,
					MIMEType:    file.MIMEType,
					FolderID:    &clone.ID,
					DimensionID: file.DimensionID,
					Status:      file.Status,
					PublicURL:   url,
				}
				if err := s.files.Insert(gctx, fileClone); err != nil {
					return fmt.Errorf("failed to clone file %s: %w", file.ID, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
	}

	return newRootID, nil
}

// DeleteSubtree переводит поддерево в корзину. Сначала фиксируется
// полный набор потомков, затем на каждую папку и файл пишется строка
// корзины с общим root_deleted_folder_id, после чего живые строки
// удаляются: файлы, папки снизу вверх, зависимые записи. Содержимое
// блобов на этом этапе не трогается — только при окончательной зачистке.
func (s *CascadeService) DeleteSubtree(ctx context.Context, folderID int64, actor string) error {
	root, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return err
	}

	folders, filesByFolder, err := s.collectSubtree(ctx, root)
	if err != nil {
		return err
	}

	rootKey := strconv.FormatInt(folderID, 10)
	now := time.Now()

	for i := range folders {
		f := folders[i]
		created := f.CreatedAt
		rec := &domain.TrashRecord{
			ItemID:              strconv.FormatInt(f.ID, 10),
			ItemType:            domain.TrashItemFolder,
			ItemName:            f.Name,
			DimensionID:         f.DimensionID,
			OriginalParentID:    f.ParentID,
			RootDeletedFolderID: rootKey,
			ItemCreatedAt:       &created,
			DeletedAt:           now,
		}
		if err := s.trash.Insert(ctx, rec); err != nil {
			return fmt.Errorf("failed to write trash record for folder %d: %w", f.ID, err)
		}

		for _, file := range filesByFolder[f.ID] {
			file := file
			parent := f.ID
			created := file.CreatedAt
			rec := &domain.TrashRecord{
				ItemID:              file.ID.String(),
				ItemType:            domain.TrashItemFile,
				ItemName:            file.Name,
				DimensionID:         file.DimensionID,
				BlobPath:            &file.BlobPath,
				SizeBytes:           &file.SizeBytes,
				MIMEType:            &file.MIMEType,
				PublicURL:           &file.PublicURL,
				OriginalFolderID:    &parent,
				RootDeletedFolderID: rootKey,
				ItemCreatedAt:       &created,
				DeletedAt:           now,
			}
			if err := s.trash.Insert(ctx, rec); err != nil {
				return fmt.Errorf("failed to write trash record for file %s: %w", file.ID, err)
			}
		}
	}

	// Живые строки файлов: сбой одного файла логируется и не прерывает
	// каскад. Файлы одной папки удаляются параллельно.
	var fileIDs []uuid.UUID
	for _, f := range folders {
		files := filesByFolder[f.ID]
		var wg sync.WaitGroup
		for _, file := range files {
			fileIDs = append(fileIDs, file.ID)
			file := file
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.files.Delete(ctx, file.ID); err != nil {
					log.Printf("Warning: failed to delete file row %s: %v", file.ID, err)
				}
			}()
		}
		wg.Wait()
	}

	// Папки удаляются снизу вверх: сначала самые глубокие потомки,
	// корень последним
	folderIDs := make([]int64, 0, len(folders))
	for i := len(folders) - 1; i >= 0; i-- {
		folderIDs = append(folderIDs, folders[i].ID)
		if err := s.folders.Delete(ctx, folders[i].ID); err != nil {
			log.Printf("Warning: failed to delete folder row %d: %v", folders[i].ID, err)
		}
	}

	if err := s.deps.DeleteForItems(ctx, folderIDs, fileIDs); err != nil {
		log.Printf("Warning: failed to delete dependent records for folder %d: %v", folderID, err)
	}

	s.audit.Log(ctx, audit.Event{
		Action:      "delete",
		EntityType:  "folder",
		EntityID:    rootKey,
		Status:      audit.StatusSuccess,
		Description: fmt.Sprintf("moved subtree to trash: %d folders, %d files", len(folders), len(fileIDs)),
		ActorID:     actor,
	})

	return nil
}

// DeleteFileToTrash переводит одиночный файл в корзину. Запись
// использует собственный id файла в качестве корневого id группы.
func (s *CascadeService) DeleteFileToTrash(ctx context.Context, fileID uuid.UUID, actor string) error {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}

	created := file.CreatedAt
	rec := &domain.TrashRecord{
		ItemID:              file.ID.String(),
		ItemType:            domain.TrashItemFile,
		ItemName:            file.Name,
		DimensionID:         file.DimensionID,
		BlobPath:            &file.BlobPath,
		SizeBytes:           &file.SizeBytes,
		MIMEType:            &file.MIMEType,
		PublicURL:           &file.PublicURL,
		OriginalFolderID:    file.FolderID,
		RootDeletedFolderID: file.ID.String(),
		ItemCreatedAt:       &created,
		DeletedAt:           time.Now(),
	}
	if err := s.trash.Insert(ctx, rec); err != nil {
		return fmt.Errorf("failed to write trash record for file %s: %w", file.ID, err)
	}

	if err := s.files.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("failed to delete file row %s: %w", fileID, err)
	}

	if err := s.deps.DeleteForItems(ctx, nil, []uuid.UUID{fileID}); err != nil {
		log.Printf("Warning: failed to delete dependent records for file %s: %v", fileID, err)
	}

	s.audit.Log(ctx, audit.Event{
		Action:     "delete",
		EntityType: "file",
		EntityID:   fileID.String(),
		Status:     audit.StatusSuccess,
		ActorID:    actor,
	})

	return nil
}

// MoveSubtree перемещает поддерево под нового родителя. Отклоняется
// только перенос папки в саму себя; полная цепочка предков цели не
// проверяется, поэтому перенос папки под собственного потомка проходит.
// TODO: решить, входит ли защита от глубоких циклов в контракт движка,
// и при положительном решении подниматься по цепочке предков цели до корня
func (s *CascadeService) MoveSubtree(ctx context.Context, folderID int64, targetParentID *int64) error {
	if targetParentID != nil && *targetParentID == folderID {
		return fmt.Errorf("cannot move folder into itself: %w", domain.ErrConflict)
	}

	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return err
	}

	if targetParentID != nil {
		target, err := s.folders.GetByID(ctx, *targetParentID)
		if err != nil {
			return fmt.Errorf("target folder: %w", err)
		}
		if target.DimensionID != folder.DimensionID {
			return fmt.Errorf("cross-dimension move: %w", domain.ErrInvalidInput)
		}
	}

	return s.folders.UpdateParent(ctx, folderID, targetParentID)
}

// RecoverSubtree восстанавливает группу записей корзины одного события
// удаления. Строки корзины удаляются только после успешного
// восстановления всех элементов; первый сбой прерывает операцию с id
// проблемного элемента, чтобы группу можно было безопасно повторить.
func (s *CascadeService) RecoverSubtree(ctx context.Context, rootTrashID int64, itemType string) error {
	rec, err := s.trash.GetByID(ctx, rootTrashID)
	if err != nil {
		// Группа уже восстановлена предыдущим вызовом — повтор считается успехом
		if errors.Is(err, domain.ErrNotFound) {
			log.Printf("trash record %d already recovered", rootTrashID)
			return nil
		}
		return err
	}

	if itemType != rec.ItemType {
		return fmt.Errorf("item type mismatch for trash record %d: %w", rootTrashID, domain.ErrInvalidInput)
	}

	if rec.ItemType == domain.TrashItemFile {
		return s.recoverFile(ctx, rec)
	}

	return s.recoverFolderTree(ctx, rec)
}

func (s *CascadeService) recoverFile(ctx context.Context, rec *domain.TrashRecord) error {
	file, err := fileFromTrash(rec)
	if err != nil {
		return err
	}

	// Если исходная папка исчезла, файл возвращается в корень измерения
	if rec.OriginalFolderID != nil {
		if _, err := s.folders.GetByID(ctx, *rec.OriginalFolderID); err == nil {
			file.FolderID = rec.OriginalFolderID
		} else {
			log.Printf("orphan recovery: file %s restored to dimension root", rec.ItemID)
		}
	}

	if err := s.files.Insert(ctx, file); err != nil {
		return fmt.Errorf("failed to restore file %s: %w", rec.ItemID, err)
	}

	return s.trash.DeleteByRoot(ctx, rec.RootDeletedFolderID)
}

func (s *CascadeService) recoverFolderTree(ctx context.Context, rec *domain.TrashRecord) error {
	rootID, err := strconv.ParseInt(rec.ItemID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid folder id in trash record %d: %w", rec.ID, domain.ErrInvalidInput)
	}

	// Корень восстанавливается с исходным id и временем создания;
	// коллизия ключа при повторе — успех, а не ошибка
	rootFolder := folderFromTrash(rec, rootID)
	rootFolder.ParentID = rec.OriginalParentID
	if err := s.folders.Insert(ctx, rootFolder); err != nil {
		return fmt.Errorf("failed to restore folder %s: %w", rec.ItemID, err)
	}

	rows, err := s.trash.ListByRoot(ctx, rec.RootDeletedFolderID)
	if err != nil {
		return err
	}

	var pending []domain.TrashRecord
	var fileRows []domain.TrashRecord
	for _, row := range rows {
		switch {
		case row.ItemType == domain.TrashItemFile:
			fileRows = append(fileRows, row)
		case row.ItemID != rec.ItemID:
			pending = append(pending, row)
		}
	}

	// Папка становится восстановимой, когда её исходный родитель уже в
	// живом дереве; проходы повторяются, пока есть прогресс
	restored := map[int64]bool{rootID: true}
	for len(pending) > 0 {
		progress := false
		var next []domain.TrashRecord

		for _, sub := range pending {
			if sub.OriginalParentID == nil || !restored[*sub.OriginalParentID] {
				next = append(next, sub)
				continue
			}

			id, err := strconv.ParseInt(sub.ItemID, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid folder id in trash record %d: %w", sub.ID, domain.ErrInvalidInput)
			}
			folder := folderFromTrash(&sub, id)
			folder.ParentID = sub.OriginalParentID
			if err := s.folders.Insert(ctx, folder); err != nil {
				return fmt.Errorf("failed to restore folder %s: %w", sub.ItemID, err)
			}
			restored[id] = true
			progress = true
		}

		if !progress {
			break
		}
		pending = next
	}

	// Оборванная цепочка: исходный родитель так и не появился.
	// Такие папки восстанавливаются под корнем восстановления — это
	// сознательно сохраненная политика, не доказанная корректной.
	for _, sub := range pending {
		id, err := strconv.ParseInt(sub.ItemID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid folder id in trash record %d: %w", sub.ID, domain.ErrInvalidInput)
		}
		folder := folderFromTrash(&sub, id)
		folder.ParentID = &rootID
		if err := s.folders.Insert(ctx, folder); err != nil {
			return fmt.Errorf("failed to restore folder %s: %w", sub.ItemID, err)
		}
		restored[id] = true
		log.Printf("orphan recovery: folder %s reparented under %d", sub.ItemID, rootID)
	}

	// Файлы: исходная папка, если она восстановлена, иначе корень восстановления
	for _, row := range fileRows {
		file, err := fileFromTrash(&row)
		if err != nil {
			return err
		}
		if row.OriginalFolderID != nil && restored[*row.OriginalFolderID] {
			file.FolderID = row.OriginalFolderID
		} else {
			file.FolderID = &rootID
		}
		if err := s.files.Insert(ctx, file); err != nil {
			return fmt.Errorf("failed to restore file %s: %w", row.ItemID, err)
		}
	}

	if err := s.trash.DeleteByRoot(ctx, rec.RootDeletedFolderID); err != nil {
		return err
	}

	s.audit.Log(ctx, audit.Event{
		Action:      "recover",
		EntityType:  "folder",
		EntityID:    rec.ItemID,
		Status:      audit.StatusSuccess,
		Description: fmt.Sprintf("recovered subtree: %d trash records", len(rows)),
	})

	return nil
}

// CountSubtree считает подпапки и файлы поддерева. Чистое чтение без
// кеширования, пересчитывается при каждом вызове; подсчет по дочерним
// папкам разлетается параллельно.
func (s *CascadeService) CountSubtree(ctx context.Context, folderID int64) (*domain.SubtreeCounts, error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var foldersN, filesN atomic.Int64
	if err := s.countFolder(ctx, folder.DimensionID, folder.ID, &foldersN, &filesN); err != nil {
		return nil, err
	}

	return &domain.SubtreeCounts{
		Folders: int(foldersN.Load()),
		Files:   int(filesN.Load()),
	}, nil
}

func (s *CascadeService) countFolder(ctx context.Context, dimensionID, folderID int64, foldersN, filesN *atomic.Int64) error {
	files, err := s.files.ListByFolder(ctx, dimensionID, &folderID)
	if err != nil {
		return err
	}
	filesN.Add(int64(len(files)))

	children, err := s.folders.ListByParent(ctx, dimensionID, &folderID)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, child := range children {
		child := child
		foldersN.Add(1)
		g.Go(func() error {
			return s.countFolder(gctx, dimensionID, child.ID, foldersN, filesN)
		})
	}

	return g.Wait()
}

func folderFromTrash(rec *domain.TrashRecord, id int64) *domain.Folder {
	folder := &domain.Folder{
		ID:          id,
		Name:        rec.ItemName,
		DimensionID: rec.DimensionID,
	}
	if rec.ItemCreatedAt != nil {
		folder.CreatedAt = *rec.ItemCreatedAt
	}
	return folder
}

func fileFromTrash(rec *domain.TrashRecord) (*domain.File, error) {
	id, err := uuid.Parse(rec.ItemID)
	if err != nil {
		return nil, fmt.Errorf("invalid file id in trash record %d: %w", rec.ID, domain.ErrInvalidInput)
	}

	file := &domain.File{
		ID:          id,
		Name:        rec.ItemName,
		DimensionID: rec.DimensionID,
	}
	if rec.BlobPath != nil {
		file.BlobPath = *rec.BlobPath
	}
	if rec.SizeBytes != nil {
		file.SizeBytes = *rec.SizeBytes
	}
	if rec.MIMEType != nil {
		file.MIMEType = *rec.MIMEType
	}
	if rec.PublicURL != nil {
		file.PublicURL = *rec.PublicURL
	}
	if rec.ItemCreatedAt != nil {
		file.CreatedAt = *rec.ItemCreatedAt
	}
	return file, nil
}
